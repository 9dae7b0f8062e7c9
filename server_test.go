package otpcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterMsg struct {
	op    string
	delta int
}

type counterBehavior struct {
	initErr       error
	initDelay     time.Duration
	terminated    chan ExitReason
	panicOnCast   bool
	handleCallErr error
}

func (b *counterBehavior) Init(ctx context.Context, args ...any) (int, error) {
	if b.initDelay > 0 {
		select {
		case <-time.After(b.initDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if b.initErr != nil {
		return 0, b.initErr
	}
	start := 0
	if len(args) > 0 {
		start = args[0].(int)
	}
	return start, nil
}

func (b *counterBehavior) HandleCall(ctx context.Context, msg counterMsg, state int) (int, int, error) {
	if b.handleCallErr != nil {
		return 0, state, b.handleCallErr
	}
	switch msg.op {
	case "get":
		return state, state, nil
	case "add":
		newState := state + msg.delta
		return newState, newState, nil
	case "panic":
		panic("handle_call panic")
	default:
		return state, state, nil
	}
}

func (b *counterBehavior) HandleCast(ctx context.Context, msg counterMsg, state int) (int, error) {
	if b.panicOnCast {
		panic("handle_cast panic")
	}
	switch msg.op {
	case "add":
		return state + msg.delta, nil
	default:
		return state, nil
	}
}

func (b *counterBehavior) Terminate(reason ExitReason, state int) {
	if b.terminated != nil {
		b.terminated <- reason
	}
}

func TestStartAndCall(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithArgs(10))
	require.NoError(t, err)
	defer ref.Stop()

	val, err := ref.Call(counterMsg{op: "get"})
	require.NoError(t, err)
	assert.Equal(t, 10, val)
}

func TestCallMutatesState(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithArgs(1))
	require.NoError(t, err)
	defer ref.Stop()

	val, err := ref.Call(counterMsg{op: "add", delta: 5})
	require.NoError(t, err)
	assert.Equal(t, 6, val)

	val, err = ref.Call(counterMsg{op: "get"})
	require.NoError(t, err)
	assert.Equal(t, 6, val)
}

func TestCastIsAsynchronous(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithArgs(0))
	require.NoError(t, err)
	defer ref.Stop()

	require.NoError(t, ref.Cast(counterMsg{op: "add", delta: 3}))

	require.Eventually(t, func() bool {
		val, err := ref.Call(counterMsg{op: "get"})
		return err == nil && val == 3
	}, time.Second, 10*time.Millisecond)
}

func TestInitFailureReturnsInitializationFailed(t *testing.T) {
	_, err := Start[int, counterMsg, int](&counterBehavior{initErr: errors.New("boom")})
	require.Error(t, err)
	var initFailed *InitializationFailed
	require.ErrorAs(t, err, &initFailed)
}

func TestInitTimeout(t *testing.T) {
	_, err := Start[int, counterMsg, int](
		&counterBehavior{initDelay: 200 * time.Millisecond},
		WithInitTimeout(20*time.Millisecond),
	)
	require.Error(t, err)
	var timeout *InitTimeout
	require.ErrorAs(t, err, &timeout)
}

func TestCallTimeoutWithNanosecondDeadline(t *testing.T) {
	// A one-nanosecond deadline almost always expires before the handler's
	// reply arrives; whenever the call does fail, it must fail as CallTimeout.
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithMailboxSize(1))
	require.NoError(t, err)
	defer ref.Stop()

	_, err = ref.CallWithTimeout(counterMsg{op: "get"}, time.Nanosecond)
	if err != nil {
		var callTimeout *CallTimeout
		assert.ErrorAs(t, err, &callTimeout)
	}
}

func TestHandlerErrorCrashesProcessAndFulfillsReplyWithHandlerFailed(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{handleCallErr: errors.New("handler blew up")})
	require.NoError(t, err)

	_, err = ref.Call(counterMsg{op: "get"})
	require.Error(t, err)
	var handlerFailed *HandlerFailed
	require.ErrorAs(t, err, &handlerFailed)

	require.Eventually(t, func() bool { return !ref.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestPanicInHandleCallIsTreatedLikeAnError(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{})
	require.NoError(t, err)

	_, err = ref.Call(counterMsg{op: "panic"})
	require.Error(t, err)
	var handlerFailed *HandlerFailed
	require.ErrorAs(t, err, &handlerFailed)

	require.Eventually(t, func() bool { return !ref.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestPanicInHandleCastCrashesProcess(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{panicOnCast: true})
	require.NoError(t, err)

	require.NoError(t, ref.Cast(counterMsg{op: "add", delta: 1}))

	require.Eventually(t, func() bool { return !ref.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestStopRunsTerminateAndStopsProcess(t *testing.T) {
	terminated := make(chan ExitReason, 1)
	ref, err := Start[int, counterMsg, int](&counterBehavior{terminated: terminated})
	require.NoError(t, err)

	ref.Stop()

	select {
	case reason := <-terminated:
		assert.Equal(t, ExitNormal, reason.Kind)
	case <-time.After(time.Second):
		t.Fatal("terminate was not invoked within timeout")
	}

	require.Eventually(t, func() bool { return !ref.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestCallAfterStopReturnsNotRunning(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{})
	require.NoError(t, err)

	ref.Stop()
	require.Eventually(t, func() bool { return !ref.IsRunning() }, time.Second, 10*time.Millisecond)

	_, err = ref.Call(counterMsg{op: "get"})
	require.Error(t, err)
	var notRunning *NotRunning
	require.ErrorAs(t, err, &notRunning)
}

func TestSendAfterDeliversCastOnSchedule(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithArgs(0))
	require.NoError(t, err)
	defer ref.Stop()

	_, err = ref.SendAfter(counterMsg{op: "add", delta: 7}, 20*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		val, err := ref.Call(counterMsg{op: "get"})
		return err == nil && val == 7
	}, time.Second, 10*time.Millisecond)
}

func TestCancelTimerWinsRaceWhenCalledImmediately(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithArgs(0))
	require.NoError(t, err)
	defer ref.Stop()

	timer, err := ref.SendAfter(counterMsg{op: "add", delta: 99}, 50*time.Millisecond)
	require.NoError(t, err)

	ok := CancelTimer(timer)
	assert.True(t, ok, "cancelling well before the deadline should win the race")

	time.Sleep(80 * time.Millisecond)
	val, err := ref.Call(counterMsg{op: "get"})
	require.NoError(t, err)
	assert.Equal(t, 0, val, "a cancelled timer must not deliver its cast")
}

func TestCancelTimerLosesRaceAfterFiring(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithArgs(0))
	require.NoError(t, err)
	defer ref.Stop()

	timer, err := ref.SendAfter(counterMsg{op: "add", delta: 1}, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	ok := CancelTimer(timer)
	assert.False(t, ok, "cancelling after the timer has already fired must lose the race")
}

func TestNameRegistrationViaWithName(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithName("named-counter"))
	require.NoError(t, err)
	defer ref.Stop()

	got, ok := Whereis("named-counter")
	require.True(t, ok)
	assert.Equal(t, ref.Ref(), got)
}

func TestDuplicateNameFailsStart(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithName("dup-counter"))
	require.NoError(t, err)
	defer ref.Stop()

	_, err = Start[int, counterMsg, int](&counterBehavior{}, WithName("dup-counter"))
	require.Error(t, err)
	var already *AlreadyRegistered
	require.ErrorAs(t, err, &already)
}

func TestInspectReportsProcessedCount(t *testing.T) {
	ref, err := Start[int, counterMsg, int](&counterBehavior{}, WithArgs(0))
	require.NoError(t, err)
	defer ref.Stop()

	_, _ = ref.Call(counterMsg{op: "get"})
	_, _ = ref.Call(counterMsg{op: "get"})

	info, ok := Inspect(ref.Ref())
	require.True(t, ok)
	assert.GreaterOrEqual(t, info.Processed, uint64(2))
	assert.Equal(t, StatusRunning, info.Status)
}

func TestForceTerminateBypassesTerminate(t *testing.T) {
	terminated := make(chan ExitReason, 1)
	ref, err := Start[int, counterMsg, int](&counterBehavior{terminated: terminated})
	require.NoError(t, err)

	require.NoError(t, ForceTerminate(ref.Ref(), nil))
	require.Eventually(t, func() bool { return !ref.IsRunning() }, time.Second, 10*time.Millisecond)

	select {
	case <-terminated:
		t.Fatal("Terminate must not run on a forced termination")
	case <-time.After(100 * time.Millisecond):
	}
}
