package otpcore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Runtime-wide tunables, overridable per-call via options. These mirror the
// teacher's ProcessOptions defaults, generalised to the behaviours this
// package adds.
var (
	DefaultCallTimeout     = 5 * time.Second
	DefaultInitTimeout     = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMailboxSize     = 100
)

// Behavior is the (init, handle_call, handle_cast) tuple a generic server is
// started with. S is the process's private state type, M the message type
// accepted by both Call and Cast, R the reply type returned by Call.
//
// Exceptions (returned errors or recovered panics) from HandleCall and
// HandleCast are never distinguished from one another: both crash the
// process with an Error exit reason and are reported identically to any
// subscriber watching the Crashed event.
type Behavior[S, M, R any] interface {
	Init(ctx context.Context, args ...any) (S, error)
	HandleCall(ctx context.Context, msg M, state S) (R, S, error)
	HandleCast(ctx context.Context, msg M, state S) (S, error)
}

// Terminator is an optional extension of Behavior. A behavior that implements
// it gets a best-effort cleanup callback on every exit path, including
// crashes, before the process is reported Stopped.
type Terminator[S any] interface {
	Terminate(reason ExitReason, state S)
}

type startConfig struct {
	name            string
	initTimeout     time.Duration
	mailboxSize     int
	shutdownTimeout time.Duration
	args            []any
}

func defaultStartConfig() startConfig {
	return startConfig{
		initTimeout:     DefaultInitTimeout,
		mailboxSize:     DefaultMailboxSize,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// StartOption configures Start. Mirrors the teacher's ProcessOptions struct,
// expressed as functional options in the style of goverseer.Option.
type StartOption func(*startConfig)

// WithName registers the started process under name in the default Registry.
func WithName(name string) StartOption {
	return func(c *startConfig) { c.name = name }
}

// WithInitTimeout bounds how long Init is awaited before Start fails with InitTimeout.
func WithInitTimeout(d time.Duration) StartOption {
	return func(c *startConfig) { c.initTimeout = d }
}

// WithMailboxSize overrides the buffered mailbox capacity (default DefaultMailboxSize).
func WithMailboxSize(n int) StartOption {
	return func(c *startConfig) { c.mailboxSize = n }
}

// WithShutdownTimeout bounds how long Terminate is awaited before the process
// is force-terminated anyway. Supervisors override this per ChildSpec.
func WithShutdownTimeout(d time.Duration) StartOption {
	return func(c *startConfig) { c.shutdownTimeout = d }
}

// WithArgs supplies the variadic arguments forwarded to Init.
func WithArgs(args ...any) StartOption {
	return func(c *startConfig) { c.args = args }
}

type envelopeKind uint8

const (
	envCall envelopeKind = iota
	envCast
	envShutdown
)

type envelope[M, R any] struct {
	kind   envelopeKind
	payload M
	reply  *callSlot[R]
	reason ExitReason
}

// callSlot is the single-shot reply channel a Call registers. It is
// deliberately buffered at one: the handler always succeeds in fulfilling it
// even if the caller has already abandoned it to a CallTimeout, which is how
// "the callee still processes the message; the reply is then discarded" is
// implemented without an explicit cancellation flag.
type callSlot[R any] struct {
	ch   chan callResult[R]
	once sync.Once
}

type callResult[R any] struct {
	val R
	err error
}

func newCallSlot[R any]() *callSlot[R] {
	return &callSlot[R]{ch: make(chan callResult[R], 1)}
}

func (s *callSlot[R]) fulfill(v R, err error) {
	s.once.Do(func() { s.ch <- callResult[R]{val: v, err: err} })
}

type timerHandle struct {
	seq     uint64
	timer   *time.Timer
	claimed int32
}

type initOutcome[S any] struct {
	state S
	err   error
}

// process is the internal, type-parameterised process record behind a Ref of
// kind KindServer. It is exposed to the rest of the runtime only through the
// managedProcess interface.
type process[S, M, R any] struct {
	refID Ref

	mailbox chan envelope[M, R]
	ctx     context.Context
	cancel  context.CancelFunc

	behavior Behavior[S, M, R]

	mu              sync.RWMutex
	state           S
	st              Status
	name            string
	startedAt       time.Time
	processed       uint64
	supervisor      Ref
	hasSupervisor   bool
	shutdownTimeout time.Duration
	lastExitReason  ExitReason

	timerMu  sync.Mutex
	timers   map[uint64]*timerHandle
	timerSeq uint64

	finalizeOnce sync.Once
	doneCh       chan struct{}

	// abortCh/abortOnce let forceTerminate cut a hung Terminate callback
	// short instead of waiting out p.shutdownTimeout, so a supervisor's own
	// per-child ShutdownTimeout is the effective bound on StopSupervisor.
	abortOnce sync.Once
	abortCh   chan struct{}
}

// Start launches a new generic server process: Init runs before any message
// is dequeued, and the process never reaches Running if Init fails or
// exceeds its timeout.
func Start[S, M, R any](behavior Behavior[S, M, R], opts ...StartOption) (ServerRef[M, R], error) {
	cfg := defaultStartConfig()
	for _, o := range opts {
		o(&cfg)
	}

	mailboxSize := cfg.mailboxSize
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &process[S, M, R]{
		mailbox:         make(chan envelope[M, R], mailboxSize),
		ctx:             ctx,
		cancel:          cancel,
		behavior:        behavior,
		st:              StatusInitializing,
		doneCh:          make(chan struct{}),
		abortCh:         make(chan struct{}),
		timers:          make(map[uint64]*timerHandle),
		shutdownTimeout: cfg.shutdownTimeout,
	}

	initResult := make(chan initOutcome[S], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero S
				initResult <- initOutcome[S]{state: zero, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		st, err := behavior.Init(ctx, cfg.args...)
		initResult <- initOutcome[S]{state: st, err: err}
	}()

	if cfg.initTimeout <= 0 {
		select {
		case out := <-initResult:
			if out.err != nil {
				cancel()
				return ServerRef[M, R]{}, &InitializationFailed{Cause: out.err}
			}
			return p.finishStart(cfg, out.state)
		default:
			cancel()
			return ServerRef[M, R]{}, &InitTimeout{TimeoutMs: 0}
		}
	}

	timer := time.NewTimer(cfg.initTimeout)
	defer timer.Stop()
	select {
	case out := <-initResult:
		if out.err != nil {
			cancel()
			return ServerRef[M, R]{}, &InitializationFailed{Cause: out.err}
		}
		return p.finishStart(cfg, out.state)
	case <-timer.C:
		cancel()
		return ServerRef[M, R]{}, &InitTimeout{TimeoutMs: int(cfg.initTimeout / time.Millisecond)}
	}
}

func (p *process[S, M, R]) finishStart(cfg startConfig, state S) (ServerRef[M, R], error) {
	p.state = state
	p.refID = newRef(KindServer)
	p.startedAt = time.Now()
	p.name = cfg.name

	if cfg.name != "" {
		if err := defaultRegistry.Register(cfg.name, p.refID); err != nil {
			p.cancel()
			return ServerRef[M, R]{}, err
		}
	}

	p.setStatus(StatusRunning)
	rt.register(p.refID, p)
	go p.run()
	publishStarted(p.refID)
	return ServerRef[M, R]{ref: p.refID}, nil
}

func (p *process[S, M, R]) run() {
	for {
		select {
		case env := <-p.mailbox:
			if env.kind == envShutdown {
				p.finalizeWithReason(env.reason)
				return
			}
			if p.handleEnvelope(env) {
				return
			}
		case <-p.ctx.Done():
			p.finalizeWithReason(Shutdown())
			return
		}
	}
}

// handleEnvelope returns true if the process crashed while processing env,
// in which case it has already finalized and run must stop.
func (p *process[S, M, R]) handleEnvelope(env envelope[M, R]) (crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			crashed = true
			err := fmt.Errorf("panic: %v", r)
			if env.kind == envCall {
				env.reply.fulfill(zeroOf[R](), &HandlerFailed{Cause: err})
			}
			p.crash(err)
		}
	}()

	switch env.kind {
	case envCall:
		reply, newState, err := p.behavior.HandleCall(p.ctx, env.payload, p.state)
		if err != nil {
			env.reply.fulfill(zeroOf[R](), &HandlerFailed{Cause: err})
			p.crash(err)
			return true
		}
		p.state = newState
		p.mu.Lock()
		p.processed++
		p.mu.Unlock()
		env.reply.fulfill(reply, nil)
		return false
	case envCast:
		newState, err := p.behavior.HandleCast(p.ctx, env.payload, p.state)
		if err != nil {
			p.crash(err)
			return true
		}
		p.state = newState
		p.mu.Lock()
		p.processed++
		p.mu.Unlock()
		return false
	default:
		return false
	}
}

func zeroOf[T any]() T {
	var z T
	return z
}

func (p *process[S, M, R]) crash(err error) {
	p.setStatus(StatusStopping)
	logWarn("process crashed", "ref", p.refID.String(), "error", err)
	publishCrashed(p.refID, err)
	p.finalizeWithReason(Error(err))
}

func (p *process[S, M, R]) finalizeWithReason(reason ExitReason) {
	p.finalizeOnce.Do(func() {
		p.setStatus(StatusStopping)
		p.runTerminateBestEffort(reason)
		p.finalizeTail(reason, nil)
	})
}

// finalizeTail is the single place that commits a process to Stopped and
// publishes its one and only Terminated (plus, for a forced kill carrying an
// error, its one and only Crashed) event. Both finalizeWithReason and
// forceTerminate route through here exactly once per process, guarded by
// finalizeOnce.
func (p *process[S, M, R]) finalizeTail(reason ExitReason, crashErr error) {
	p.clearTimersLocked()
	p.setStatus(StatusStopped)
	p.mu.Lock()
	p.lastExitReason = reason
	p.mu.Unlock()
	p.unregisterSelf()
	rt.unregister(p.refID)
	if crashErr != nil {
		publishCrashed(p.refID, crashErr)
	}
	publishTerminated(p.refID, reason)
	close(p.doneCh)
}

func (p *process[S, M, R]) unregisterSelf() {
	p.mu.RLock()
	name := p.name
	p.mu.RUnlock()
	if name != "" {
		defaultRegistry.unregisterIfMatches(name, p.refID)
	}
}

func (p *process[S, M, R]) runTerminateBestEffort(reason ExitReason) {
	term, ok := any(p.behavior).(Terminator[S])
	if !ok {
		return
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logWarn("terminate panicked", "ref", p.refID.String(), "panic", r)
			}
		}()
		term.Terminate(reason, p.state)
	}()
	select {
	case <-done:
	case <-time.After(p.shutdownTimeout):
		logWarn("terminate exceeded shutdown timeout, abandoning", "ref", p.refID.String())
	case <-p.abortCh:
		logWarn("terminate abandoned: force-terminated before it completed", "ref", p.refID.String())
	}
}

func (p *process[S, M, R]) clearTimersLocked() {
	p.timerMu.Lock()
	for _, th := range p.timers {
		th.timer.Stop()
	}
	p.timers = make(map[uint64]*timerHandle)
	p.timerMu.Unlock()
}

func (p *process[S, M, R]) setStatus(s Status) {
	p.mu.Lock()
	p.st = s
	p.mu.Unlock()
}

// --- managedProcess implementation ---

func (p *process[S, M, R]) ref() Ref { return p.refID }

func (p *process[S, M, R]) currentStatus() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.st
}

func (p *process[S, M, R]) cast(payload any) error {
	m, ok := payload.(M)
	if !ok {
		return fmt.Errorf("otpcore: cast payload type mismatch for %s", p.refID)
	}
	if st := p.currentStatus(); st == StatusStopping || st == StatusStopped {
		return &NotRunning{ServerID: p.refID.String()}
	}
	select {
	case p.mailbox <- envelope[M, R]{kind: envCast, payload: m}:
		return nil
	case <-p.ctx.Done():
		return &NotRunning{ServerID: p.refID.String()}
	}
}

func (p *process[S, M, R]) call(payload any, timeout time.Duration) (any, error) {
	m, ok := payload.(M)
	if !ok {
		return nil, fmt.Errorf("otpcore: call payload type mismatch for %s", p.refID)
	}
	if p.currentStatus() == StatusStopped {
		return nil, &NotRunning{ServerID: p.refID.String()}
	}

	slot := newCallSlot[R]()
	select {
	case p.mailbox <- envelope[M, R]{kind: envCall, payload: m, reply: slot}:
	case <-p.ctx.Done():
		return nil, &NotRunning{ServerID: p.refID.String()}
	}

	if timeout <= 0 {
		select {
		case res := <-slot.ch:
			return res.val, res.err
		default:
			return nil, &CallTimeout{ServerID: p.refID.String(), TimeoutMs: 0}
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-slot.ch:
		return res.val, res.err
	case <-timer.C:
		return nil, &CallTimeout{ServerID: p.refID.String(), TimeoutMs: int(timeout / time.Millisecond)}
	case <-p.ctx.Done():
		return nil, &NotRunning{ServerID: p.refID.String()}
	}
}

func (p *process[S, M, R]) sendAfter(payload any, delay time.Duration) (TimerRef, error) {
	m, ok := payload.(M)
	if !ok {
		return TimerRef{}, fmt.Errorf("otpcore: send_after payload type mismatch for %s", p.refID)
	}
	if p.currentStatus() != StatusRunning {
		return TimerRef{}, &NotRunning{ServerID: p.refID.String()}
	}

	p.timerMu.Lock()
	p.timerSeq++
	seq := p.timerSeq
	th := &timerHandle{seq: seq}
	p.timers[seq] = th
	p.timerMu.Unlock()

	th.timer = time.AfterFunc(delay, func() {
		if atomic.CompareAndSwapInt32(&th.claimed, 0, 1) {
			p.timerMu.Lock()
			delete(p.timers, seq)
			p.timerMu.Unlock()
			_ = p.cast(m)
		}
	})

	return TimerRef{owner: p.refID, seq: seq}, nil
}

func (p *process[S, M, R]) cancelTimer(seq uint64) bool {
	p.timerMu.Lock()
	th, ok := p.timers[seq]
	if ok {
		delete(p.timers, seq)
	}
	p.timerMu.Unlock()
	if !ok {
		return false
	}
	if atomic.CompareAndSwapInt32(&th.claimed, 0, 1) {
		th.timer.Stop()
		return true
	}
	return false
}

func (p *process[S, M, R]) stop(reason ExitReason) {
	select {
	case p.mailbox <- envelope[M, R]{kind: envShutdown, reason: reason}:
	case <-p.ctx.Done():
	}
}

func (p *process[S, M, R]) forceTerminate(err error) {
	reason := Shutdown()
	if err != nil {
		reason = Error(err)
	}

	// Cut short any Terminate callback already running under
	// finalizeWithReason, so a caller (typically a supervisor enforcing its
	// own ChildSpec.ShutdownTimeout) isn't bound by this process's own,
	// possibly much longer, shutdownTimeout.
	p.abortOnce.Do(func() { close(p.abortCh) })

	ranHere := false
	p.finalizeOnce.Do(func() {
		ranHere = true
		logWarn("process force-terminated", "ref", p.refID.String())
		p.setStatus(StatusStopping)
		p.finalizeTail(reason, err)
	})
	if !ranHere {
		// finalizeWithReason (or a concurrent forceTerminate) owns this
		// process's single finalize; the abort signal above has already
		// unblocked it, so this just waits for it to finish closing doneCh.
		<-p.doneCh
	}
	p.cancel()
}

func (p *process[S, M, R]) done() <-chan struct{} { return p.doneCh }

func (p *process[S, M, R]) exitReason() ExitReason {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastExitReason
}

func (p *process[S, M, R]) snapshot() ProcessInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ProcessInfo{
		Ref:           p.refID,
		Name:          p.name,
		Status:        p.st,
		MailboxLen:    len(p.mailbox),
		Processed:     p.processed,
		StartedAt:     p.startedAt.UnixNano(),
		Supervisor:    p.supervisor,
		HasSupervisor: p.hasSupervisor,
	}
}

func (p *process[S, M, R]) setSupervisorBackpointer(ref Ref) {
	p.mu.Lock()
	p.supervisor = ref
	p.hasSupervisor = true
	p.mu.Unlock()
}

// ServerRef is a type-safe handle to a running generic server, returned by
// Start. It wraps the opaque, type-erased Ref the rest of the runtime
// (registry, lifecycle bus, supervisor children) stores and compares by
// identity.
type ServerRef[M, R any] struct {
	ref Ref
}

// Ref returns the untyped handle underlying sr, suitable for ChildSpec.Start,
// the Registry, or Inspect.
func (sr ServerRef[M, R]) Ref() Ref { return sr.ref }

// Call sends msg and blocks for a reply, up to DefaultCallTimeout.
func (sr ServerRef[M, R]) Call(msg M) (R, error) { return Call[M, R](sr.ref, msg) }

// CallWithTimeout sends msg and blocks for a reply, up to timeout.
func (sr ServerRef[M, R]) CallWithTimeout(msg M, timeout time.Duration) (R, error) {
	return Call[M, R](sr.ref, msg, timeout)
}

// Cast enqueues msg without waiting for a reply.
func (sr ServerRef[M, R]) Cast(msg M) error { return Cast(sr.ref, msg) }

// SendAfter schedules msg for delivery as a Cast after delay.
func (sr ServerRef[M, R]) SendAfter(msg M, delay time.Duration) (TimerRef, error) {
	return SendAfter(sr.ref, msg, delay)
}

// Stop requests a graceful shutdown with the default (Normal) reason.
func (sr ServerRef[M, R]) Stop() { Stop(sr.ref) }

// StopWithReason requests a graceful shutdown with an explicit reason.
func (sr ServerRef[M, R]) StopWithReason(reason ExitReason) { Stop(sr.ref, reason) }

// IsRunning reports whether the process is currently in the Running state.
func (sr ServerRef[M, R]) IsRunning() bool { return IsRunning(sr.ref) }

// Call looks up ref in the runtime table and performs a synchronous
// request/reply, converting type mismatches and absence into the named
// errors from the error taxonomy. timeout defaults to DefaultCallTimeout.
func Call[M, R any](ref Ref, msg M, timeout ...time.Duration) (R, error) {
	var zero R
	mp, ok := rt.lookup(ref)
	if !ok {
		return zero, &NotRunning{ServerID: ref.String()}
	}
	t := DefaultCallTimeout
	if len(timeout) > 0 {
		t = timeout[0]
	}
	raw, err := mp.call(msg, t)
	if err != nil {
		return zero, err
	}
	r, ok := raw.(R)
	if !ok {
		return zero, fmt.Errorf("otpcore: reply type mismatch for %s", ref)
	}
	return r, nil
}

// Cast looks up ref in the runtime table and enqueues msg without waiting.
func Cast[M any](ref Ref, msg M) error {
	mp, ok := rt.lookup(ref)
	if !ok {
		return &NotRunning{ServerID: ref.String()}
	}
	return mp.cast(msg)
}

// SendAfter schedules msg for delivery to ref as a Cast after delay.
func SendAfter[M any](ref Ref, msg M, delay time.Duration) (TimerRef, error) {
	mp, ok := rt.lookup(ref)
	if !ok {
		return TimerRef{}, &NotRunning{ServerID: ref.String()}
	}
	return mp.sendAfter(msg, delay)
}

// CancelTimer attempts to cancel t before it fires. Returns true only if it
// won the race against delivery.
func CancelTimer(t TimerRef) bool {
	mp, ok := rt.lookup(t.owner)
	if !ok {
		return false
	}
	return mp.cancelTimer(t.seq)
}

// Stop requests a graceful shutdown of ref, Normal unless reason is given.
// It is asynchronous: it enqueues a Shutdown envelope and returns without
// waiting for the process to reach Stopped.
func Stop(ref Ref, reason ...ExitReason) {
	mp, ok := rt.lookup(ref)
	if !ok {
		return
	}
	r := Normal()
	if len(reason) > 0 {
		r = reason[0]
	}
	mp.stop(r)
}
