package otpcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterWhereis(t *testing.T) {
	r := NewRegistry()
	ref := newRef(KindServer)

	require.NoError(t, r.Register("alpha", ref))

	got, ok := r.Whereis("alpha")
	require.True(t, ok)
	assert.Equal(t, ref, got)
}

func TestRegistryAlreadyRegistered(t *testing.T) {
	r := NewRegistry()
	ref1 := newRef(KindServer)
	ref2 := newRef(KindServer)

	require.NoError(t, r.Register("alpha", ref1))

	err := r.Register("alpha", ref2)
	require.Error(t, err)
	var dup *AlreadyRegistered
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "alpha", dup.Name)
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Unregister("never-registered")

	ref := newRef(KindServer)
	require.NoError(t, r.Register("beta", ref))
	r.Unregister("beta")
	r.Unregister("beta")

	_, ok := r.Whereis("beta")
	assert.False(t, ok)
}

func TestRegistryUnregisterIfMatchesGuardsAgainstStaleUnregister(t *testing.T) {
	r := NewRegistry()
	oldRef := newRef(KindServer)
	newRefVal := newRef(KindServer)

	require.NoError(t, r.Register("gamma", oldRef))
	r.Unregister("gamma")
	require.NoError(t, r.Register("gamma", newRefVal))

	// A stale unregister for the old ref must not clobber the new binding.
	r.unregisterIfMatches("gamma", oldRef)

	got, ok := r.Whereis("gamma")
	require.True(t, ok)
	assert.Equal(t, newRefVal, got)
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("delta", newRef(KindServer)))
	r.clear()
	_, ok := r.Whereis("delta")
	assert.False(t, ok)
}
