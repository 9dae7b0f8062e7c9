package otpcore

import (
	"sync"
	"time"
)

// managedProcess is the narrow, type-erased interface the runtime's process
// table stores every live GenServer and Supervisor behind. Generic-server
// call/cast payloads cross this boundary as `any`; the type-safe public API
// (ServerRef[M, R], Call[M, R]) recovers the concrete types at the edge.
type managedProcess interface {
	ref() Ref
	currentStatus() Status
	cast(payload any) error
	call(payload any, timeout time.Duration) (any, error)
	sendAfter(payload any, delay time.Duration) (TimerRef, error)
	cancelTimer(seq uint64) bool
	stop(reason ExitReason)
	forceTerminate(err error)
	done() <-chan struct{}
	exitReason() ExitReason
	snapshot() ProcessInfo
	setSupervisorBackpointer(ref Ref)
}

type runtimeTable struct {
	mu        sync.RWMutex
	processes map[Ref]managedProcess
}

var rt = &runtimeTable{processes: make(map[Ref]managedProcess)}

func (t *runtimeTable) register(ref Ref, mp managedProcess) {
	t.mu.Lock()
	t.processes[ref] = mp
	t.mu.Unlock()
}

func (t *runtimeTable) unregister(ref Ref) {
	t.mu.Lock()
	delete(t.processes, ref)
	t.mu.Unlock()
}

func (t *runtimeTable) lookup(ref Ref) (managedProcess, bool) {
	t.mu.RLock()
	mp, ok := t.processes[ref]
	t.mu.RUnlock()
	return mp, ok
}

func (t *runtimeTable) all() []managedProcess {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]managedProcess, 0, len(t.processes))
	for _, mp := range t.processes {
		out = append(out, mp)
	}
	return out
}

func lookupManaged(ref Ref) (managedProcess, bool) { return rt.lookup(ref) }

// Inspect returns a read-only snapshot of ref's process record: status,
// mailbox length, processed-message count and start time. It does not alter
// behaviour and is safe to call from any goroutine. For a supervisor only
// Ref, Name and Status are filled in.
func Inspect(ref Ref) (ProcessInfo, bool) {
	mp, ok := rt.lookup(ref)
	if !ok {
		return ProcessInfo{}, false
	}
	return mp.snapshot(), true
}

// IsRunning reports whether ref currently addresses a process in the Running
// state, for either a GenServer or a Supervisor.
func IsRunning(ref Ref) bool {
	mp, ok := rt.lookup(ref)
	if !ok {
		return false
	}
	return mp.currentStatus() == StatusRunning
}

// ForceTerminate bypasses terminate entirely, marks ref Stopped and injects
// an Error exit reason carrying err (or Shutdown if err is nil). It is the
// stress-test hook named in the runtime's external interface: force-kill a
// process bypassing its terminate callback.
func ForceTerminate(ref Ref, err error) error {
	mp, ok := rt.lookup(ref)
	if !ok {
		return &NotRunning{ServerID: ref.String()}
	}
	mp.forceTerminate(err)
	return nil
}

// ResetForTesting stops every live process, clears the registry and the
// lifecycle subscriber list, and resets the Ref id counter. It is the
// `_clear_all()` hook the runtime's external interface requires for a stress
// test harness to start from a clean slate between runs.
func ResetForTesting() {
	procs := rt.all()
	rt.mu.Lock()
	rt.processes = make(map[Ref]managedProcess)
	rt.mu.Unlock()

	for _, mp := range procs {
		mp.forceTerminate(nil)
	}

	defaultRegistry.clear()
	defaultBus.clear()
	resetRefCounter()
}
