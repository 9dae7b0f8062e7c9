package otpcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefIsZero(t *testing.T) {
	var zero Ref
	assert.True(t, zero.IsZero())

	r := newRef(KindServer)
	assert.False(t, r.IsZero())
}

func TestRefKindString(t *testing.T) {
	r := newRef(KindSupervisor)
	assert.Equal(t, KindSupervisor, r.Kind())
	assert.Contains(t, r.String(), "supervisor")
}

func TestNewRefUniqueness(t *testing.T) {
	seen := make(map[Ref]bool)
	for i := 0; i < 100; i++ {
		r := newRef(KindServer)
		require.False(t, seen[r], "newRef produced a duplicate Ref")
		seen[r] = true
	}
}

func TestExitReasonBuilders(t *testing.T) {
	assert.Equal(t, ExitNormal, Normal().Kind)
	assert.Equal(t, ExitShutdown, Shutdown().Kind)

	err := assert.AnError
	e := Error(err)
	assert.Equal(t, ExitError, e.Kind)
	assert.Same(t, err, e.Err)
}

func TestStatusString(t *testing.T) {
	cases := []struct {
		s    Status
		want string
	}{
		{StatusInitializing, "initializing"},
		{StatusRunning, "running"},
		{StatusStopping, "stopping"},
		{StatusStopped, "stopped"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.s.String())
	}
}
