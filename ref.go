package otpcore

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind distinguishes the two process flavours the runtime tracks.
type Kind uint8

const (
	KindServer Kind = iota
	KindSupervisor
)

func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindSupervisor:
		return "supervisor"
	default:
		return "unknown"
	}
}

// Ref is an opaque, comparable handle to a live (or formerly live) process.
// It does not embed the mailbox or any behavior state; the runtime keeps a
// separate id-to-process table that Ref operations look up against.
type Ref struct {
	id   string
	kind Kind
}

// IsZero reports whether r is the zero Ref (never returned by Start/StartSupervisor).
func (r Ref) IsZero() bool { return r.id == "" }

// Kind reports whether r addresses a generic server or a supervisor.
func (r Ref) Kind() Kind { return r.kind }

func (r Ref) String() string {
	if r.IsZero() {
		return "ref(zero)"
	}
	return r.id
}

var refCounter uint64

func newRef(kind Kind) Ref {
	seq := atomic.AddUint64(&refCounter, 1)
	return Ref{
		id:   fmt.Sprintf("%s-%d-%s", kind, seq, uuid.NewString()[:8]),
		kind: kind,
	}
}

func resetRefCounter() {
	atomic.StoreUint64(&refCounter, 0)
}

// ExitReasonKind tags the tagged-union ExitReason.
type ExitReasonKind uint8

const (
	ExitNormal ExitReasonKind = iota
	ExitShutdown
	ExitError
)

// ExitReason is the tagged union Normal | Shutdown | Error(e) that every process
// exit and every Terminated event carries.
type ExitReason struct {
	Kind ExitReasonKind
	Err  error
}

// Normal builds the default, non-failure exit reason.
func Normal() ExitReason { return ExitReason{Kind: ExitNormal} }

// Shutdown builds the reason used for supervisor-initiated graceful stops.
func Shutdown() ExitReason { return ExitReason{Kind: ExitShutdown} }

// Error builds the reason a crashing handler or init failure produces.
func Error(err error) ExitReason { return ExitReason{Kind: ExitError, Err: err} }

func (r ExitReason) String() string {
	switch r.Kind {
	case ExitNormal:
		return "normal"
	case ExitShutdown:
		return "shutdown"
	case ExitError:
		return fmt.Sprintf("error(%v)", r.Err)
	default:
		return "unknown"
	}
}

// Status is the process state machine position: Initializing -> Running -> Stopping -> Stopped.
type Status uint8

const (
	StatusInitializing Status = iota
	StatusRunning
	StatusStopping
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TimerRef identifies a pending send_after timer. Non-durable: it does not
// survive the owning process's death.
type TimerRef struct {
	owner Ref
	seq   uint64
}

// Ref returns the process the timer was scheduled against.
func (t TimerRef) Ref() Ref { return t.owner }

// ProcessInfo is a read-only snapshot of a process record, exposed via Inspect.
type ProcessInfo struct {
	Ref        Ref
	Name       string
	Status     Status
	MailboxLen int
	Processed  uint64
	StartedAt  int64 // unix nanos; zero if never started
	Supervisor Ref
	HasSupervisor bool
}
