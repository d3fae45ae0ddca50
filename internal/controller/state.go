package controller

import "errors"

// State is the controller's position in the optimization lifecycle.
type State string

const (
	StateInitializing State = "INITIALIZING"
	StateIterating    State = "ITERATING"
	StateConverged    State = "CONVERGED"
	StateSafetyLimit  State = "SAFETY_LIMIT_REACHED"
	StateFailed       State = "FAILED"
	StateReporting    State = "REPORTING"
	StateDone         State = "DONE"
)

// ErrSafetyLimit is returned by Run when the independent safety counter
// trips before the loop converges. A report is still produced.
var ErrSafetyLimit = errors.New("safety limit exceeded")
