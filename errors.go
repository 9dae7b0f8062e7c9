package otpcore

import "fmt"

// InitializationFailed is returned by Start when a behavior's Init returns an error.
type InitializationFailed struct {
	Cause error
}

func (e *InitializationFailed) Error() string {
	return fmt.Sprintf("otpcore: initialization failed: %v", e.Cause)
}

func (e *InitializationFailed) Unwrap() error { return e.Cause }

// InitTimeout is returned by Start when Init does not complete within the configured timeout.
type InitTimeout struct {
	TimeoutMs int
}

func (e *InitTimeout) Error() string {
	return fmt.Sprintf("otpcore: init did not complete within %dms", e.TimeoutMs)
}

// CallTimeout is returned by Call when no reply arrives before the deadline.
type CallTimeout struct {
	ServerID  string
	TimeoutMs int
}

func (e *CallTimeout) Error() string {
	return fmt.Sprintf("otpcore: call to %s timed out after %dms", e.ServerID, e.TimeoutMs)
}

// NotRunning is returned by any operation addressed to a Ref with no live process.
type NotRunning struct {
	ServerID string
}

func (e *NotRunning) Error() string {
	return fmt.Sprintf("otpcore: %s is not running", e.ServerID)
}

// HandlerFailed wraps an error (or recovered panic) raised from HandleCall, returned to the caller.
type HandlerFailed struct {
	Cause error
}

func (e *HandlerFailed) Error() string {
	return fmt.Sprintf("otpcore: handler failed: %v", e.Cause)
}

func (e *HandlerFailed) Unwrap() error { return e.Cause }

// AlreadyRegistered is returned when a name is already bound to a live Ref.
type AlreadyRegistered struct {
	Name string
}

func (e *AlreadyRegistered) Error() string {
	return fmt.Sprintf("otpcore: name %q is already registered", e.Name)
}

// MaxRestartsExceeded is surfaced when a supervisor's restart-intensity limiter trips.
type MaxRestartsExceeded struct {
	SupervisorID string
	MaxRestarts  int
	WithinMs     int
}

func (e *MaxRestartsExceeded) Error() string {
	return fmt.Sprintf("otpcore: supervisor %s exceeded %d restarts within %dms", e.SupervisorID, e.MaxRestarts, e.WithinMs)
}

// DuplicateChild is returned by StartChild when the id clashes with a tracked child.
type DuplicateChild struct {
	SupervisorID string
	ChildID      string
}

func (e *DuplicateChild) Error() string {
	return fmt.Sprintf("otpcore: supervisor %s already tracks child %q", e.SupervisorID, e.ChildID)
}

// ChildNotFound is returned by TerminateChild/RestartChild for an unknown id.
type ChildNotFound struct {
	SupervisorID string
	ChildID      string
}

func (e *ChildNotFound) Error() string {
	return fmt.Sprintf("otpcore: supervisor %s has no child %q", e.SupervisorID, e.ChildID)
}

// InvalidChildState is returned by RestartChild when the child is currently running.
type InvalidChildState struct {
	SupervisorID string
	ChildID      string
	Reason       string
}

func (e *InvalidChildState) Error() string {
	return fmt.Sprintf("otpcore: supervisor %s child %q: %s", e.SupervisorID, e.ChildID, e.Reason)
}

// MissingChildTemplate is returned by StartSupervisor for a SimpleOneForOne strategy with no template.
type MissingChildTemplate struct {
	SupervisorID string
}

func (e *MissingChildTemplate) Error() string {
	return fmt.Sprintf("otpcore: supervisor %s: simple_one_for_one requires a child template", e.SupervisorID)
}

// InvalidSimpleOneForOneConfig is returned when a spec/template is used against the wrong strategy.
type InvalidSimpleOneForOneConfig struct {
	SupervisorID string
	Reason       string
}

func (e *InvalidSimpleOneForOneConfig) Error() string {
	return fmt.Sprintf("otpcore: supervisor %s: %s", e.SupervisorID, e.Reason)
}

// errUnsupportedForSupervisor is returned when a GenServer-only operation (Call/Cast/SendAfter)
// is addressed to a Ref of kind KindSupervisor.
var errUnsupportedForSupervisor = fmt.Errorf("otpcore: operation not supported on a supervisor ref")
