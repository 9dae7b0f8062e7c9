package otpcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusSubscribeAndPublish(t *testing.T) {
	b := newEventBus()
	var got []LifecycleEvent
	unsubscribe := b.Subscribe(func(ev LifecycleEvent) {
		got = append(got, ev)
	})
	defer unsubscribe()

	ref := newRef(KindServer)
	b.publish(LifecycleEvent{Kind: LifecycleStarted, Ref: ref})

	require.Len(t, got, 1)
	assert.Equal(t, LifecycleStarted, got[0].Kind)
	assert.Equal(t, ref, got[0].Ref)
}

func TestEventBusUnsubscribeStopsDelivery(t *testing.T) {
	b := newEventBus()
	count := 0
	unsubscribe := b.Subscribe(func(LifecycleEvent) { count++ })

	b.publish(LifecycleEvent{Kind: LifecycleStarted})
	unsubscribe()
	b.publish(LifecycleEvent{Kind: LifecycleStarted})

	assert.Equal(t, 1, count)
}

func TestEventBusUnsubscribeIsIdempotent(t *testing.T) {
	b := newEventBus()
	unsubscribe := b.Subscribe(func(LifecycleEvent) {})
	unsubscribe()
	assert.NotPanics(t, func() { unsubscribe() })
}

func TestEventBusRecoversPanickingHandler(t *testing.T) {
	b := newEventBus()
	called := false
	b.Subscribe(func(LifecycleEvent) { panic("boom") })
	b.Subscribe(func(LifecycleEvent) { called = true })

	assert.NotPanics(t, func() {
		b.publish(LifecycleEvent{Kind: LifecycleCrashed})
	})
	assert.True(t, called, "a panicking subscriber must not prevent others from receiving the event")
}

func TestEventBusClear(t *testing.T) {
	b := newEventBus()
	count := 0
	b.Subscribe(func(LifecycleEvent) { count++ })
	b.clear()
	b.publish(LifecycleEvent{Kind: LifecycleStarted})
	assert.Equal(t, 0, count)
}
