package otpcore

import "sync"

// LifecycleEvent is the union Started | Crashed | Restarted | Terminated.
// Exactly one of the payload fields is meaningful, selected by Kind.
type LifecycleEvent struct {
	Kind    LifecycleKind
	Ref     Ref
	Err     error      // set for Crashed
	Attempt int        // set for Restarted
	Reason  ExitReason // set for Terminated
}

type LifecycleKind uint8

const (
	LifecycleStarted LifecycleKind = iota
	LifecycleCrashed
	LifecycleRestarted
	LifecycleTerminated
)

// Handler observes lifecycle transitions. It must not block indefinitely —
// the bus dispatches synchronously on the goroutine that committed the
// transition.
type Handler func(LifecycleEvent)

// EventBus is a process-wide, append/delete-only broadcaster of LifecycleEvents.
// Dispatch is synchronous and happens after the relevant state-table update
// has been committed. A panicking or otherwise misbehaving handler is
// recovered and logged, never propagated to the caller that triggered the
// transition.
type EventBus struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]Handler
}

func newEventBus() *EventBus {
	return &EventBus{subs: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it. Safe to call
// the returned function more than once.
func (b *EventBus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *EventBus) snapshot() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		out = append(out, h)
	}
	return out
}

func (b *EventBus) publish(ev LifecycleEvent) {
	for _, h := range b.snapshot() {
		dispatchSafely(h, ev)
	}
}

func dispatchSafely(h Handler, ev LifecycleEvent) {
	defer func() {
		if r := recover(); r != nil {
			logWarn("lifecycle subscriber panicked", "ref", ev.Ref.String(), "panic", r)
		}
	}()
	h(ev)
}

func (b *EventBus) clear() {
	b.mu.Lock()
	b.subs = make(map[uint64]Handler)
	b.mu.Unlock()
}

var defaultBus = newEventBus()

// OnLifecycleEvent subscribes to every Started/Crashed/Restarted/Terminated
// event the runtime emits, across every GenServer and Supervisor. The
// returned function unsubscribes.
func OnLifecycleEvent(h Handler) (unsubscribe func()) {
	return defaultBus.Subscribe(h)
}

// ClearLifecycleHandlers drops every subscriber. Intended for test teardown.
func ClearLifecycleHandlers() {
	defaultBus.clear()
}

func publishStarted(ref Ref) {
	defaultBus.publish(LifecycleEvent{Kind: LifecycleStarted, Ref: ref})
}

func publishCrashed(ref Ref, err error) {
	defaultBus.publish(LifecycleEvent{Kind: LifecycleCrashed, Ref: ref, Err: err})
}

func publishRestarted(ref Ref, attempt int) {
	defaultBus.publish(LifecycleEvent{Kind: LifecycleRestarted, Ref: ref, Attempt: attempt})
}

func publishTerminated(ref Ref, reason ExitReason) {
	defaultBus.publish(LifecycleEvent{Kind: LifecycleTerminated, Ref: ref, Reason: reason})
}
