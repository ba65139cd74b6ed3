// Package patch edits stored pipeline definitions with unified diffs,
// snapshotting every change so a bad revision can be rolled back.
package patch

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/mlgate/mlgate/model/types"
)

// Name of the system/patch action service.
const Name = "system/patch"

// Service applies unified-diff revisions within a rollback session.
type Service struct {
	mu      sync.Mutex
	session *Session
}

// New creates the patch service instance.
func New() *Service { return &Service{} }

// Name returns service identifier.
func (s *Service) Name() string { return Name }

// Methods returns the service method catalogue.
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "apply",
			Description: "Applies a unified-diff patch (---/+++ headers, @@ hunks) within the current session, auto-created on first use.",
			Input:       reflect.TypeOf(&ApplyInput{}),
			Output:      reflect.TypeOf(&ApplyOutput{}),
		},
		{
			Name:        "diff",
			Description: "Generates a unified diff and statistics from two document revisions.",
			Input:       reflect.TypeOf(&DiffInput{}),
			Output:      reflect.TypeOf(&DiffOutput{}),
		},
		{
			Name:        "commit",
			Description: "Commits the session, discarding rollback snapshots.",
			Input:       reflect.TypeOf(&EmptyInput{}),
			Output:      reflect.TypeOf(&EmptyOutput{}),
		},
		{
			Name:        "rollback",
			Description: "Rolls back all pending changes in the current session.",
			Input:       reflect.TypeOf(&EmptyInput{}),
			Output:      reflect.TypeOf(&EmptyOutput{}),
		},
	}
}

// Method maps method names to executable handlers.
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "apply":
		return s.apply, nil
	case "diff":
		return s.diff, nil
	case "commit":
		return s.commit, nil
	case "rollback":
		return s.rollback, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

// ApplyInput carries unified-diff text as produced by `git diff` or
// `diff -u`, applied relative to the runtime working directory.
type ApplyInput struct {
	Patch string `json:"patch" description:"Unified-diff text (---/+++ file headers with @@ hunk markers) to apply"`
}

// ApplyOutput summarises the changes applied.
type ApplyOutput struct {
	Stats DiffStats `json:"stats,omitempty"`
}

// DiffInput is the payload for Service.diff
type DiffInput struct {
	OldContent   string `json:"old" description:"Original document content"`
	NewContent   string `json:"new" description:"Updated document content"`
	Path         string `json:"path,omitempty" description:"Display path for diff headers"`
	ContextLines int    `json:"contextLines,omitempty" description:"Context lines to include (default 3)"`
}

// DiffOutput is DiffResult re-exported for JSON tags.
type DiffOutput DiffResult

// EmptyInput/Output are used by commit/rollback.
type EmptyInput struct{}
type EmptyOutput struct{}

func (s *Service) apply(_ context.Context, in, out interface{}) error {
	input, ok := in.(*ApplyInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*ApplyOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}

	s.mu.Lock()
	if s.session == nil {
		var err error
		if s.session, err = NewSession(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	session := s.session
	s.mu.Unlock()

	if err := session.ApplyPatch(input.Patch); err != nil {
		_ = session.Rollback()
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
		return err
	}
	output.Stats = patchStats(input.Patch)
	// session stays open for further apply calls until commit/rollback
	return nil
}

func (s *Service) commit(_ context.Context, in, out interface{}) error {
	if _, ok := in.(*EmptyInput); !ok {
		return types.NewInvalidInputError(in)
	}
	if _, ok := out.(*EmptyOutput); !ok {
		return types.NewInvalidOutputError(out)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Commit()
	s.session = nil
	return err
}

func (s *Service) rollback(_ context.Context, in, out interface{}) error {
	if _, ok := in.(*EmptyInput); !ok {
		return types.NewInvalidInputError(in)
	}
	if _, ok := out.(*EmptyOutput); !ok {
		return types.NewInvalidOutputError(out)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Rollback()
	s.session = nil
	return err
}

func (s *Service) diff(_ context.Context, in, out interface{}) error {
	input, ok := in.(*DiffInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*DiffOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	result, err := GenerateDiff([]byte(input.OldContent), []byte(input.NewContent), input.Path, input.ContextLines)
	if err != nil {
		return err
	}
	*output = DiffOutput(result)
	return nil
}
