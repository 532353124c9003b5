package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/aimylabs/aimy/internal/logging"
	"github.com/stretchr/testify/assert"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestOnAndEmit(t *testing.T) {
	m := testManager()

	var got Payload
	m.On(EventMessagesChanged, "test", func(_ context.Context, p Payload) error {
		got = p
		return nil
	})

	m.Emit(context.Background(), EventMessagesChanged, map[string]any{"count": 3})
	assert.Equal(t, EventMessagesChanged, got.Event)
	assert.Equal(t, 3, got.Data["count"])
}

func TestEmitOrderAndErrorIsolation(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventDocsChanged, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return errors.New("boom")
	})
	m.On(EventDocsChanged, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventDocsChanged, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestOff(t *testing.T) {
	m := testManager()

	var calls int
	m.On(EventSessionReset, "a", func(_ context.Context, _ Payload) error {
		calls++
		return nil
	})
	m.On(EventSessionReset, "b", func(_ context.Context, _ Payload) error {
		calls++
		return nil
	})
	m.Off(EventSessionReset, "a")

	m.Emit(context.Background(), EventSessionReset, nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, m.Count(EventSessionReset))
}

func TestEmitWithoutHandlers(t *testing.T) {
	m := testManager()
	m.Emit(context.Background(), EventSendStarted, nil)
	assert.Zero(t, m.Count(EventSendStarted))
}
