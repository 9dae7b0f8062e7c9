package otpcore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Strategy selects which siblings a supervisor restarts when one child exits
// for a restart-eligible reason.
type Strategy uint8

const (
	OneForOne Strategy = iota
	OneForAll
	RestForOne
	SimpleOneForOne
)

func (s Strategy) String() string {
	switch s {
	case OneForOne:
		return "one_for_one"
	case OneForAll:
		return "one_for_all"
	case RestForOne:
		return "rest_for_one"
	case SimpleOneForOne:
		return "simple_one_for_one"
	default:
		return "unknown"
	}
}

// AutoShutdown controls whether a supervisor terminates itself when its
// "significant" children stop, considering only children whose ChildSpec /
// ChildTemplate has Significant set.
type AutoShutdown uint8

const (
	Never AutoShutdown = iota
	AnySignificant
	AllSignificant
)

// SupervisorOptions configures StartSupervisor.
type SupervisorOptions struct {
	Name         string
	Strategy     Strategy
	Children     []ChildSpec
	Template     *ChildTemplate // required (and only valid) for SimpleOneForOne
	MaxRestarts  int            // default DefaultMaxRestarts
	WithinMs     int            // default DefaultWithinMs
	AutoShutdown AutoShutdown
}

type childEntry struct {
	spec         ChildSpec
	ref          Ref
	running      bool
	restartCount int
	index        int
}

type supCmdKind uint8

const (
	cmdStartChild supCmdKind = iota
	cmdStartDynamicChild
	cmdTerminateChild
	cmdRestartChild
	cmdGetChildren
	cmdGetChild
	cmdCountChildren
)

type supCommand struct {
	kind  supCmdKind
	spec  *ChildSpec
	args  []any
	id    string
	reply chan supResult
}

type supResult struct {
	ref      Ref
	err      error
	children []ChildInfo
	child    ChildInfo
	found    bool
	count    int
}

type childExitMsg struct {
	entry  *childEntry
	ref    Ref
	reason ExitReason
}

// Supervisor owns a set of children described by ChildSpec/ChildTemplate and
// restarts them under a declared strategy, consulting a
// RestartIntensityLimiter on every restart-eligible exit. Like a GenServer
// process, it is itself addressed through a Ref and tracked in the runtime
// table, so supervisors may be nested: a parent's watcher treats a crashing
// child supervisor exactly like a crashing generic server.
type Supervisor struct {
	refID        Ref
	name         string
	strategy     Strategy
	template     *ChildTemplate
	limiter      *RestartIntensityLimiter
	autoShutdown AutoShutdown

	mu       sync.RWMutex
	children []*childEntry
	byID     map[string]*childEntry
	dynSeq   uint64

	significantTotal   int
	significantStopped int

	commands  chan supCommand
	childExit chan *childExitMsg

	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}

	stopOnce      sync.Once
	stopping      bool
	stopReason    ExitReason
	exitReasonVal ExitReason
}

// StartSupervisor validates opts, starts the initial children sequentially
// in declaration order, and only then registers the supervisor in the
// runtime table. If any child's Start fails, previously started children are
// stopped in reverse order and the originating error is returned.
func StartSupervisor(opts SupervisorOptions) (Ref, error) {
	name := opts.Name
	if name == "" {
		name = "supervisor"
	}

	if opts.Strategy == SimpleOneForOne {
		if opts.Template == nil {
			return Ref{}, &MissingChildTemplate{SupervisorID: name}
		}
		if len(opts.Children) > 0 {
			return Ref{}, &InvalidSimpleOneForOneConfig{SupervisorID: name, Reason: "children must be empty for simple_one_for_one; use a template instead"}
		}
	} else if opts.Template != nil {
		return Ref{}, &InvalidSimpleOneForOneConfig{SupervisorID: name, Reason: "a child template is only valid with simple_one_for_one"}
	}

	maxRestarts := opts.MaxRestarts
	if maxRestarts <= 0 {
		maxRestarts = DefaultMaxRestarts
	}
	withinMs := opts.WithinMs
	if withinMs <= 0 {
		withinMs = DefaultWithinMs
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		name:         name,
		strategy:     opts.Strategy,
		template:     opts.Template,
		autoShutdown: opts.AutoShutdown,
		byID:         make(map[string]*childEntry),
		commands:     make(chan supCommand, 16),
		childExit:    make(chan *childExitMsg, 16),
		ctx:          ctx,
		cancel:       cancel,
		doneCh:       make(chan struct{}),
	}
	s.limiter = newRestartIntensityLimiter(name, maxRestarts, time.Duration(withinMs)*time.Millisecond)

	started := make([]*childEntry, 0, len(opts.Children))
	for i, spec := range opts.Children {
		spec.applyDefaults()
		if _, exists := s.byID[spec.ID]; exists {
			s.rollback(started)
			cancel()
			return Ref{}, &DuplicateChild{SupervisorID: name, ChildID: spec.ID}
		}
		ref, err := spec.Start()
		if err != nil {
			s.rollback(started)
			cancel()
			return Ref{}, &InitializationFailed{Cause: err}
		}
		if spec.Significant {
			s.significantTotal++
		}
		e := &childEntry{spec: spec, ref: ref, running: true, index: i}
		s.children = append(s.children, e)
		s.byID[spec.ID] = e
		started = append(started, e)
	}

	s.refID = newRef(KindSupervisor)
	for _, e := range s.children {
		if mp, ok := lookupManaged(e.ref); ok {
			mp.setSupervisorBackpointer(s.refID)
		}
	}

	if opts.Name != "" {
		if err := defaultRegistry.Register(opts.Name, s.refID); err != nil {
			s.rollback(started)
			cancel()
			return Ref{}, err
		}
	}

	rt.register(s.refID, s)
	for _, e := range s.children {
		s.watchChild(e)
	}
	go s.run()
	publishStarted(s.refID)
	return s.refID, nil
}

func (s *Supervisor) rollback(started []*childEntry) {
	for i := len(started) - 1; i >= 0; i-- {
		e := started[i]
		if mp, ok := lookupManaged(e.ref); ok {
			mp.stop(Shutdown())
			select {
			case <-mp.done():
			case <-time.After(e.spec.ShutdownTimeout):
				mp.forceTerminate(nil)
			}
		}
	}
}

func (s *Supervisor) watchChild(e *childEntry) {
	mp, ok := lookupManaged(e.ref)
	if !ok {
		return
	}
	ref := e.ref
	go func() {
		<-mp.done()
		select {
		case s.childExit <- &childExitMsg{entry: e, ref: ref, reason: mp.exitReason()}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Supervisor) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.ctx.Done():
			s.doShutdown()
			return
		case cmd := <-s.commands:
			s.handleCommand(cmd)
		case exit := <-s.childExit:
			s.handleChildExit(exit)
		}
	}
}

func (s *Supervisor) doShutdown() {
	s.mu.Lock()
	s.stopping = true
	reason := s.stopReason
	children := make([]*childEntry, len(s.children))
	copy(children, s.children)
	s.mu.Unlock()

	if reason.Kind == ExitNormal && reason.Err == nil {
		// A Normal reason (StopSupervisor's default, or the zero value) is
		// reported as Shutdown, matching the self-termination paths.
		reason = Shutdown()
	}

	for i := len(children) - 1; i >= 0; i-- {
		e := children[i]
		if e.running {
			s.stopEntrySync(e, e.spec.ShutdownTimeout)
		}
	}

	s.mu.Lock()
	if s.exitReasonVal.Kind == ExitNormal && s.exitReasonVal.Err == nil {
		s.exitReasonVal = reason
	}
	finalReason := s.exitReasonVal
	s.mu.Unlock()

	s.unregisterSelf()
	rt.unregister(s.refID)
	if finalReason.Kind == ExitError {
		publishCrashed(s.refID, finalReason.Err)
	}
	publishTerminated(s.refID, finalReason)
}

func (s *Supervisor) unregisterSelf() {
	if s.name != "" {
		defaultRegistry.unregisterIfMatches(s.name, s.refID)
	}
}

func (s *Supervisor) stopEntrySync(e *childEntry, timeout time.Duration) {
	mp, ok := lookupManaged(e.ref)
	if !ok {
		e.running = false
		return
	}
	mp.stop(Shutdown())
	select {
	case <-mp.done():
	case <-time.After(timeout):
		mp.forceTerminate(nil)
		<-mp.done()
	}
	e.running = false
}

// --- command handling (StartChild, TerminateChild, RestartChild, queries) ---

func (s *Supervisor) handleCommand(cmd supCommand) {
	switch cmd.kind {
	case cmdStartChild:
		ref, err := s.doStartChild(*cmd.spec)
		cmd.reply <- supResult{ref: ref, err: err}
	case cmdStartDynamicChild:
		ref, err := s.doStartDynamicChild(cmd.args)
		cmd.reply <- supResult{ref: ref, err: err}
	case cmdTerminateChild:
		err := s.doTerminateChild(cmd.id)
		cmd.reply <- supResult{err: err}
	case cmdRestartChild:
		ref, err := s.doRestartChild(cmd.id)
		cmd.reply <- supResult{ref: ref, err: err}
	case cmdGetChildren:
		cmd.reply <- supResult{children: s.snapshotChildren()}
	case cmdGetChild:
		info, found := s.snapshotChild(cmd.id)
		cmd.reply <- supResult{child: info, found: found}
	case cmdCountChildren:
		s.mu.RLock()
		n := len(s.children)
		s.mu.RUnlock()
		cmd.reply <- supResult{count: n}
	}
}

func (s *Supervisor) doStartChild(spec ChildSpec) (Ref, error) {
	if s.strategy == SimpleOneForOne {
		return Ref{}, &InvalidSimpleOneForOneConfig{SupervisorID: s.name, Reason: "use StartDynamicChild with simple_one_for_one"}
	}
	spec.applyDefaults()

	s.mu.Lock()
	if _, exists := s.byID[spec.ID]; exists {
		s.mu.Unlock()
		return Ref{}, &DuplicateChild{SupervisorID: s.name, ChildID: spec.ID}
	}
	s.mu.Unlock()

	ref, err := spec.Start()
	if err != nil {
		return Ref{}, &InitializationFailed{Cause: err}
	}
	if mp, ok := lookupManaged(ref); ok {
		mp.setSupervisorBackpointer(s.refID)
	}

	s.mu.Lock()
	e := &childEntry{spec: spec, ref: ref, running: true, index: len(s.children)}
	s.children = append(s.children, e)
	s.byID[spec.ID] = e
	if spec.Significant {
		s.significantTotal++
	}
	s.mu.Unlock()

	s.watchChild(e)
	publishStarted(ref)
	return ref, nil
}

func (s *Supervisor) doStartDynamicChild(args []any) (Ref, error) {
	if s.strategy != SimpleOneForOne {
		return Ref{}, &InvalidSimpleOneForOneConfig{SupervisorID: s.name, Reason: "StartDynamicChild is only valid with simple_one_for_one"}
	}
	ref, err := s.template.Start(args...)
	if err != nil {
		return Ref{}, &InitializationFailed{Cause: err}
	}
	if mp, ok := lookupManaged(ref); ok {
		mp.setSupervisorBackpointer(s.refID)
	}

	s.mu.Lock()
	s.dynSeq++
	id := fmt.Sprintf("child-%d", s.dynSeq)
	tmpl := s.template
	spec := ChildSpec{
		ID:              id,
		Start:           func() (Ref, error) { return tmpl.Start(args...) },
		Restart:         s.template.Restart,
		ShutdownTimeout: s.template.shutdownTimeoutOrDefault(),
		Significant:     s.template.Significant,
	}
	e := &childEntry{spec: spec, ref: ref, running: true, index: len(s.children)}
	s.children = append(s.children, e)
	s.byID[id] = e
	if spec.Significant {
		s.significantTotal++
	}
	s.mu.Unlock()

	s.watchChild(e)
	publishStarted(ref)
	return ref, nil
}

func (s *Supervisor) doTerminateChild(id string) error {
	s.mu.Lock()
	e, exists := s.byID[id]
	s.mu.Unlock()
	if !exists {
		return &ChildNotFound{SupervisorID: s.name, ChildID: id}
	}

	if e.running {
		s.stopEntrySync(e, e.spec.ShutdownTimeout)
	}

	if s.strategy == SimpleOneForOne {
		s.mu.Lock()
		delete(s.byID, id)
		for i, c := range s.children {
			if c == e {
				s.children = append(s.children[:i], s.children[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *Supervisor) doRestartChild(id string) (Ref, error) {
	s.mu.Lock()
	e, exists := s.byID[id]
	s.mu.Unlock()
	if !exists {
		return Ref{}, &ChildNotFound{SupervisorID: s.name, ChildID: id}
	}
	if e.running {
		return Ref{}, &InvalidChildState{SupervisorID: s.name, ChildID: id, Reason: "restart_child is only valid for non-running entries"}
	}

	ref, err := e.spec.Start()
	if err != nil {
		return Ref{}, &InitializationFailed{Cause: err}
	}
	if mp, ok := lookupManaged(ref); ok {
		mp.setSupervisorBackpointer(s.refID)
	}

	s.mu.Lock()
	e.ref = ref
	e.running = true
	e.restartCount = 0
	s.mu.Unlock()

	s.watchChild(e)
	publishStarted(ref)
	return ref, nil
}

func (s *Supervisor) snapshotChildren() []ChildInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChildInfo, 0, len(s.children))
	for _, e := range s.children {
		out = append(out, childInfoFrom(e))
	}
	return out
}

func (s *Supervisor) snapshotChild(id string) (ChildInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return ChildInfo{}, false
	}
	return childInfoFrom(e), true
}

func childInfoFrom(e *childEntry) ChildInfo {
	return ChildInfo{
		ID:           e.spec.ID,
		Ref:          e.ref,
		Running:      e.running,
		RestartCount: e.restartCount,
		Restart:      e.spec.Restart,
		Significant:  e.spec.Significant,
	}
}

// --- child exit / restart cascade ---

func (s *Supervisor) handleChildExit(msg *childExitMsg) {
	s.mu.RLock()
	stopping := s.stopping
	s.mu.RUnlock()
	if stopping {
		return
	}

	e := msg.entry
	if e.ref != msg.ref {
		// Stale notification for an entry already replaced by a prior cascade.
		return
	}
	if !e.running {
		// The entry was stopped on purpose (TerminateChild); its exit is not
		// restarted, so RestartChild can bring it back later.
		if e.spec.Significant {
			s.onSignificantChildStopped()
		}
		return
	}

	e.running = false
	// The exiting process itself already published Crashed/Terminated on
	// this Ref (see process.crash / process.finalizeWithReason and the
	// Supervisor force-terminate/stop paths); re-publishing here would
	// double the event bus's per-exit guarantee.

	eligible := restartEligible(e.spec.Restart, msg.reason)

	if !eligible {
		if e.spec.Significant {
			s.onSignificantChildStopped()
		}
		return
	}

	if !s.limiter.Allow() {
		if e.spec.Significant {
			s.onSignificantChildStopped()
		}
		s.escalate(&MaxRestartsExceeded{SupervisorID: s.name, MaxRestarts: s.limiter.max, WithinMs: int(s.limiter.within / time.Millisecond)})
		return
	}

	var group []*childEntry
	switch s.strategy {
	case OneForOne, SimpleOneForOne:
		group = []*childEntry{e}
	case OneForAll:
		s.mu.RLock()
		group = append(group, s.children...)
		s.mu.RUnlock()
	case RestForOne:
		s.mu.RLock()
		for _, c := range s.children {
			if c.index >= e.index {
				group = append(group, c)
			}
		}
		s.mu.RUnlock()
	}

	if !s.restartGroup(group) {
		if e.spec.Significant {
			s.onSignificantChildStopped()
		}
		s.escalate(&MaxRestartsExceeded{SupervisorID: s.name, MaxRestarts: s.limiter.max, WithinMs: int(s.limiter.within / time.Millisecond)})
		return
	}

	publishRestarted(e.ref, e.restartCount)
}

// restartGroup stops every still-running member (in reverse order) then
// restarts all members (in original order). If any member's Start fails, the
// whole group aborts: false is returned and the caller escalates.
func (s *Supervisor) restartGroup(group []*childEntry) bool {
	for i := len(group) - 1; i >= 0; i-- {
		e := group[i]
		if e.running {
			s.stopEntrySync(e, e.spec.ShutdownTimeout)
		}
	}

	for _, e := range group {
		ref, err := e.spec.Start()
		if err != nil {
			return false
		}
		if mp, ok := lookupManaged(ref); ok {
			mp.setSupervisorBackpointer(s.refID)
		}
		e.ref = ref
		e.running = true
		e.restartCount++
		s.watchChild(e)
	}
	return true
}

func (s *Supervisor) onSignificantChildStopped() {
	s.mu.Lock()
	s.significantStopped++
	total := s.significantTotal
	stopped := s.significantStopped
	mode := s.autoShutdown
	s.mu.Unlock()

	switch mode {
	case AnySignificant:
		s.beginSelfShutdown(Shutdown())
	case AllSignificant:
		if total > 0 && stopped >= total {
			s.beginSelfShutdown(Shutdown())
		}
	}
}

func (s *Supervisor) beginSelfShutdown(reason ExitReason) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopReason = reason
		s.exitReasonVal = reason
		s.mu.Unlock()
		s.cancel()
	})
}

func (s *Supervisor) escalate(err *MaxRestartsExceeded) {
	logErr("supervisor exceeded restart intensity", "supervisor", s.name, "error", err)
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.exitReasonVal = Error(err)
		s.stopReason = Error(err)
		s.mu.Unlock()
		s.cancel()
	})
}

// stopAndWait performs a synchronous, bounded shutdown: unlike the
// asynchronous GenServer Stop, StopSupervisor is specified to resolve only
// once the tree has actually gone down.
func (s *Supervisor) stopAndWait(reason ExitReason) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopReason = reason
		s.exitReasonVal = reason
		s.mu.Unlock()
		s.cancel()
	})
	<-s.doneCh
}

// --- managedProcess implementation: supervisors are not generic servers ---

func (s *Supervisor) ref() Ref { return s.refID }

func (s *Supervisor) currentStatus() Status {
	select {
	case <-s.doneCh:
		return StatusStopped
	default:
	}
	s.mu.RLock()
	stopping := s.stopping
	s.mu.RUnlock()
	if stopping {
		return StatusStopping
	}
	return StatusRunning
}

func (s *Supervisor) cast(payload any) error { return errUnsupportedForSupervisor }

func (s *Supervisor) call(payload any, timeout time.Duration) (any, error) {
	return nil, errUnsupportedForSupervisor
}

func (s *Supervisor) sendAfter(payload any, delay time.Duration) (TimerRef, error) {
	return TimerRef{}, errUnsupportedForSupervisor
}

func (s *Supervisor) cancelTimer(seq uint64) bool { return false }

func (s *Supervisor) stop(reason ExitReason) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopReason = reason
		s.exitReasonVal = reason
		s.mu.Unlock()
		s.cancel()
	})
}

func (s *Supervisor) forceTerminate(err error) {
	reason := Shutdown()
	if err != nil {
		reason = Error(err)
	}
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopReason = reason
		s.exitReasonVal = reason
		s.mu.Unlock()
		s.cancel()
	})
	<-s.doneCh
}

func (s *Supervisor) done() <-chan struct{} { return s.doneCh }

func (s *Supervisor) exitReason() ExitReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exitReasonVal
}

func (s *Supervisor) snapshot() ProcessInfo {
	return ProcessInfo{Ref: s.refID, Name: s.name, Status: s.currentStatus()}
}

func (s *Supervisor) setSupervisorBackpointer(ref Ref) {
	// Supervisors don't currently expose their own parent back-pointer; a
	// parent's cascade logic works off the child Ref's done()/exitReason(),
	// not this pointer, so it is accepted and discarded here.
}

// Strategy reports the restart strategy sup was started with.
func (s *Supervisor) Strategy() Strategy { return s.strategy }

// Name reports the name sup was started with, or "supervisor" if none was given.
func (s *Supervisor) Name() string { return s.name }

func (s *Supervisor) sendCommand(cmd supCommand) (supResult, error) {
	select {
	case s.commands <- cmd:
	case <-s.doneCh:
		return supResult{}, &NotRunning{ServerID: s.refID.String()}
	}
	select {
	case res := <-cmd.reply:
		return res, nil
	case <-s.doneCh:
		return supResult{}, &NotRunning{ServerID: s.refID.String()}
	}
}

func lookupSupervisor(sup Ref) (*Supervisor, error) {
	mp, ok := rt.lookup(sup)
	if !ok {
		return nil, &NotRunning{ServerID: sup.String()}
	}
	s, ok := mp.(*Supervisor)
	if !ok {
		return nil, fmt.Errorf("otpcore: %s is not a supervisor", sup)
	}
	return s, nil
}

// StartChild dynamically adds spec to sup (not valid for SimpleOneForOne;
// use StartDynamicChild there).
func StartChild(sup Ref, spec ChildSpec) (Ref, error) {
	s, err := lookupSupervisor(sup)
	if err != nil {
		return Ref{}, err
	}
	res, err := s.sendCommand(supCommand{kind: cmdStartChild, spec: &spec, reply: make(chan supResult, 1)})
	if err != nil {
		return Ref{}, err
	}
	return res.ref, res.err
}

// StartDynamicChild spawns a new child from sup's template (only valid for
// SimpleOneForOne), forwarding args to the template's Start function.
func StartDynamicChild(sup Ref, args ...any) (Ref, error) {
	s, err := lookupSupervisor(sup)
	if err != nil {
		return Ref{}, err
	}
	res, err := s.sendCommand(supCommand{kind: cmdStartDynamicChild, args: args, reply: make(chan supResult, 1)})
	if err != nil {
		return Ref{}, err
	}
	return res.ref, res.err
}

// TerminateChild shuts down the child id. For a SimpleOneForOne supervisor
// the entry is removed entirely; otherwise it is preserved (not running) so
// RestartChild can bring it back.
func TerminateChild(sup Ref, id string) error {
	s, err := lookupSupervisor(sup)
	if err != nil {
		return err
	}
	res, err := s.sendCommand(supCommand{kind: cmdTerminateChild, id: id, reply: make(chan supResult, 1)})
	if err != nil {
		return err
	}
	return res.err
}

// RestartChild brings a previously terminated, non-running child entry back
// up with a fresh Ref and restart_count reset to 0.
func RestartChild(sup Ref, id string) (Ref, error) {
	s, err := lookupSupervisor(sup)
	if err != nil {
		return Ref{}, err
	}
	res, err := s.sendCommand(supCommand{kind: cmdRestartChild, id: id, reply: make(chan supResult, 1)})
	if err != nil {
		return Ref{}, err
	}
	return res.ref, res.err
}

// GetChildren returns a snapshot of every tracked child entry, in insertion order.
func GetChildren(sup Ref) ([]ChildInfo, error) {
	s, err := lookupSupervisor(sup)
	if err != nil {
		return nil, err
	}
	res, err := s.sendCommand(supCommand{kind: cmdGetChildren, reply: make(chan supResult, 1)})
	if err != nil {
		return nil, err
	}
	return res.children, nil
}

// GetChild returns the snapshot for a single tracked child id.
func GetChild(sup Ref, id string) (ChildInfo, bool, error) {
	s, err := lookupSupervisor(sup)
	if err != nil {
		return ChildInfo{}, false, err
	}
	res, err := s.sendCommand(supCommand{kind: cmdGetChild, id: id, reply: make(chan supResult, 1)})
	if err != nil {
		return ChildInfo{}, false, err
	}
	return res.child, res.found, nil
}

// CountChildren returns the number of tracked child entries.
func CountChildren(sup Ref) (int, error) {
	s, err := lookupSupervisor(sup)
	if err != nil {
		return 0, err
	}
	res, err := s.sendCommand(supCommand{kind: cmdCountChildren, reply: make(chan supResult, 1)})
	if err != nil {
		return 0, err
	}
	return res.count, nil
}

// StopSupervisor blocks until sup and every descendant has reached Stopped.
func StopSupervisor(sup Ref, reason ...ExitReason) error {
	s, err := lookupSupervisor(sup)
	if err != nil {
		return err
	}
	r := Normal()
	if len(reason) > 0 {
		r = reason[0]
	}
	s.stopAndWait(r)
	return nil
}
