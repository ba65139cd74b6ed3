package execution

import (
	"github.com/mlgate/mlgate/extension"
	"github.com/mlgate/mlgate/model"
	"github.com/viant/structology/conv"
)

type Option func(session *Session)

// WithImports adds package imports used by typed parameter resolution.
func WithImports(imports ...*model.Import) Option {
	return func(session *Session) {
		session.imports = append(session.imports, imports...)
	}
}

// WithTypes sets the type registry for the session.
func WithTypes(types *extension.Types) Option {
	return func(session *Session) {
		session.types = types
	}
}

// WithConverter sets the state converter for the session.
func WithConverter(converter *conv.Converter) Option {
	return func(session *Session) {
		session.converter = converter
	}
}

// WithState seeds the session state.
func WithState(state map[string]interface{}) Option {
	return func(session *Session) {
		for k, v := range state {
			session.State[k] = v
		}
	}
}

// WithStateListeners attaches listeners invoked on every Set.
func WithStateListeners(listeners ...StateListener) Option {
	return func(session *Session) {
		if len(listeners) == 0 {
			return
		}
		session.listeners = append(session.listeners, listeners...)
	}
}
