package otpcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRestartEligibleTable(t *testing.T) {
	cases := []struct {
		name   string
		policy RestartPolicy
		reason ExitReason
		want   bool
	}{
		{"permanent always restarts on normal", Permanent, Normal(), true},
		{"permanent always restarts on shutdown", Permanent, Shutdown(), true},
		{"permanent always restarts on error", Permanent, Error(assert.AnError), true},
		{"transient does not restart on normal", Transient, Normal(), false},
		{"transient does not restart on shutdown", Transient, Shutdown(), false},
		{"transient restarts on error", Transient, Error(assert.AnError), true},
		{"temporary never restarts", Temporary, Error(assert.AnError), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, restartEligible(c.policy, c.reason))
		})
	}
}

func TestChildSpecApplyDefaults(t *testing.T) {
	spec := ChildSpec{ID: "a"}
	spec.applyDefaults()
	assert.Equal(t, DefaultShutdownTimeout, spec.ShutdownTimeout)
}

func TestChildTemplateShutdownTimeoutOrDefault(t *testing.T) {
	tmpl := &ChildTemplate{}
	assert.Equal(t, DefaultShutdownTimeout, tmpl.shutdownTimeoutOrDefault())

	tmpl2 := &ChildTemplate{ShutdownTimeout: 42}
	assert.Equal(t, int64(42), int64(tmpl2.shutdownTimeoutOrDefault()))
}
