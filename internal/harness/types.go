package harness

import "github.com/roach88/storefront/internal/state"

// StepTrace is what one step did.
type StepTrace struct {
	Step Step

	// Changes are the state changes committed while the step ran.
	Changes []state.Change

	// ErrorCode is the code of the step's error, "" on success.
	ErrorCode string
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step succeeded or failed as expected.
	Pass bool

	// Steps holds one trace per scenario step, in order.
	Steps []StepTrace

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string

	// Final is the session state after the last step.
	Final state.Snapshot

	// Route is the router's location after the last step, and Visits
	// every navigation in order.
	Route  string
	Visits []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Changes returns every recorded change, in commit order.
func (r *Result) Changes() []state.Change {
	var out []state.Change
	for _, st := range r.Steps {
		out = append(out, st.Changes...)
	}
	return out
}
