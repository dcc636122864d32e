package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	evt := Event{
		Type:      EventAttendanceMarked,
		RecordID:  "r1",
		StudentID: "s1",
		BatchID:   "b1",
		MarkedAt:  time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, q.Publish(ctx, evt))

	out, err := q.Consume(ctx)
	assert.NoError(t, err)

	select {
	case got := <-out:
		assert.Equal(t, evt, got)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestInMemoryPublishCancelled(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Publish(ctx, Event{Type: EventAttendanceMarked})
	assert.ErrorIs(t, err, context.Canceled)
}
