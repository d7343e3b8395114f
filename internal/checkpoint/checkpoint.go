package checkpoint

import "context"

// State is the resumable view of a batch run: which companies finished
// and which failed on a previous attempt.
type State struct {
	Processed []string `json:"processed"`
	Failed    []string `json:"failed"`
}

// Contains reports whether id is in the processed list.
func (s State) Contains(id string) bool {
	for _, p := range s.Processed {
		if p == id {
			return true
		}
	}
	return false
}

// Manager persists batch progress so an interrupted run can resume
// without redoing finished companies.
type Manager interface {
	Load(ctx context.Context) (State, error)
	MarkProcessed(ctx context.Context, companyID string) error
	MarkFailed(ctx context.Context, companyID string) error
}

// Noop is a manager that records nothing. Used by single-company
// commands and tests.
type Noop struct{}

// NewNoop returns a checkpoint manager that does nothing.
func NewNoop() Noop { return Noop{} }

func (Noop) Load(ctx context.Context) (State, error)                   { return State{}, nil }
func (Noop) MarkProcessed(ctx context.Context, companyID string) error { return nil }
func (Noop) MarkFailed(ctx context.Context, companyID string) error    { return nil }
