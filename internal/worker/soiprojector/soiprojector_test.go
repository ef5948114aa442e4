package soiprojector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/regulation-registry/core/internal/events"
)

func TestHandle_IgnoresIrrelevantEventTypes(t *testing.T) {
	// A nil store would panic if Handle tried to dereference it; reaching
	// the end of Handle without doing so proves the early-return dispatch
	// on ev.EventType works before any store access.
	w := New(nil)
	err := w.Handle(context.Background(), events.DomainEvent{
		EventType: events.DerivationRequested,
		EntityID:  "v1",
	})
	assert.NoError(t, err)
}
