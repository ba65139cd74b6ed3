package execution

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/mlgate/mlgate/extension"
	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/state"
	"github.com/mlgate/mlgate/runtime/expander"
	"github.com/viant/structology/conv"
)

// Session carries the mutable variable state of a run: pipeline inits,
// step outputs posted back under their result keys, and anything actions
// publish for later steps to read.
type Session struct {
	ID        string
	State     map[string]interface{}
	Context   map[string]interface{}
	types     *extension.Types
	imports   model.Imports
	converter *conv.Converter
	mu        sync.RWMutex
	listeners []StateListener
	whenL     []WhenListener
}

// WhenListener is invoked every time a `when:` expression is evaluated, with
// the raw expression and the boolean outcome.
type WhenListener func(s *Session, expr string, result bool)

// StateListener is invoked every time Session.Set inserts or overwrites a key.
type StateListener func(s *Session, key string, oldVal, newVal interface{})

// RegisterListeners attaches callbacks called on every Set. Listeners run
// synchronously and must not call back into the session.
func (s *Session) RegisterListeners(fn ...StateListener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn...)
}

// RegisterWhenListeners attaches callbacks executed after every `when:`
// condition evaluation.
func (s *Session) RegisterWhenListeners(fn ...WhenListener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whenL = append(s.whenL, fn...)
}

// FireWhen notifies all registered when-listeners.
func (s *Session) FireWhen(expr string, result bool) {
	s.mu.RLock()
	listeners := append([]WhenListener(nil), s.whenL...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(s, expr, result)
	}
}

// Set adds or updates a session variable.
func (s *Session) Set(key string, value interface{}) {
	s.mu.Lock()
	old := s.State[key]
	s.State[key] = value
	s.mu.Unlock()

	for _, fn := range s.listeners {
		fn(s, key, old, value)
	}
}

// Get retrieves a session variable.
func (s *Session) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, exists := s.State[key]
	return value, exists
}

// Append accumulates values under key as a []interface{}; slices are
// flattened element by element.
func (s *Session) Append(key string, value interface{}) {
	if value == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var dst []interface{}
	if cur, ok := s.State[key]; ok && cur != nil {
		switch v := cur.(type) {
		case []interface{}:
			dst = v
		default:
			dst = []interface{}{v}
		}
	}

	add := func(elem interface{}) {
		if elem != nil {
			dst = append(dst, elem)
		}
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return
		}
		for i := 0; i < rv.Len(); i++ {
			add(rv.Index(i).Interface())
		}
	} else {
		add(value)
	}
	s.State[key] = dst
}

// TaskSession builds a step-scoped session: step inputs shadow run state,
// listeners carry over.
func (s *Session) TaskSession(from map[string]interface{}, options ...Option) *Session {
	ret := NewSession(s.ID, options...)
	if len(s.listeners) > 0 {
		ret.listeners = s.listeners
	}
	if len(s.whenL) > 0 {
		ret.whenL = s.whenL
	}
	for k, v := range from {
		ret.State[k] = v
	}
	for k, v := range s.State {
		if _, ok := ret.State[k]; ok {
			continue
		}
		ret.State[k] = v
	}
	return ret
}

// GetString retrieves a variable as a string.
func (s *Session) GetString(key string) (string, bool) {
	value, exists := s.Get(key)
	if !exists {
		return "", false
	}
	strVal, ok := value.(string)
	return strVal, ok
}

// GetInt retrieves a variable as an integer.
func (s *Session) GetInt(key string) (int, bool) {
	value, exists := s.Get(key)
	if !exists {
		return 0, false
	}
	intVal, ok := value.(int)
	return intVal, ok
}

// GetBool retrieves a variable as a boolean.
func (s *Session) GetBool(key string) (bool, bool) {
	value, exists := s.Get(key)
	if !exists {
		return false, false
	}
	boolVal, ok := value.(bool)
	return boolVal, ok
}

// Expand interpolates value against the session state.
func (s *Session) Expand(value interface{}) (interface{}, error) {
	return expander.Expand(value, s.State)
}

// ApplyParameters expands and applies a list of parameters to the session.
func (s *Session) ApplyParameters(params state.Parameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, param := range params {
		value, err := expander.Expand(param.Value, s.State)
		if err != nil {
			return err
		}
		value, err = s.ensureValueType(param.DataType, value)
		if err != nil {
			return err
		}
		s.State[param.Name] = value
	}
	return nil
}

// Clone creates a copy of the session.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := NewSession(s.ID)
	clone.listeners = append(clone.listeners, s.listeners...)
	clone.whenL = append(clone.whenL, s.whenL...)
	for k, v := range s.State {
		clone.State[k] = v
	}
	return clone
}

// GetAll returns a copy of all session variables.
func (s *Session) GetAll() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]interface{}, len(s.State))
	for k, v := range s.State {
		result[k] = v
	}
	return result
}

func (s *Session) ensureValueType(dataType string, value interface{}) (interface{}, error) {
	if dataType == "" {
		return value, nil
	}
	if s.types == nil {
		return nil, fmt.Errorf("types not initialized")
	}
	if s.imports == nil {
		return nil, fmt.Errorf("imports not initialized")
	}
	aType := s.types.Lookup(dataType, extension.WithImports(s.imports))
	if aType == nil {
		return nil, fmt.Errorf("type %v not registered", dataType)
	}
	return s.TypedValue(aType.Type, value)
}

// TypedValue converts a value to the specified type.
func (s *Session) TypedValue(aType reflect.Type, value interface{}) (interface{}, error) {
	if s.converter == nil {
		s.converter = conv.NewConverter(conv.DefaultOptions())
	}
	instance := newInstancePtr(aType)
	err := s.converter.Convert(value, instance)
	if aType.Kind() == reflect.Slice {
		instance = reflect.ValueOf(instance).Elem().Interface()
	}
	return instance, err
}

// NewSession creates a session.
func NewSession(id string, opt ...Option) *Session {
	ret := &Session{
		ID:      id,
		State:   make(map[string]interface{}),
		Context: make(map[string]interface{}),
	}
	for _, o := range opt {
		o(ret)
	}
	if len(ret.imports) == 0 && ret.types != nil {
		ret.imports = ret.types.Imports()
	}
	return ret
}

var empty interface{}

func newInstancePtr(t reflect.Type) interface{} {
	if t == nil {
		return empty
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}
