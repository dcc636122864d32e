// Package queue moves attendance events from the API to the worker. Two
// backends: a channel for dev/tests and a Redis list for deployments.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is published when a student redeems a token.
type Event struct {
	Type      string    `json:"type"`
	RecordID  string    `json:"record_id"`
	StudentID string    `json:"student_id"`
	BatchID   string    `json:"batch_id"`
	MarkedAt  time.Time `json:"marked_at"`
}

// EventAttendanceMarked identifies redemption events.
const EventAttendanceMarked = "attendance.marked"

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, evt Event) error
	Consume(ctx context.Context) (<-chan Event, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Event
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Event, size)}
}

// Publish enqueues an event.
func (q *InMemory) Publish(ctx context.Context, evt Event) error {
	select {
	case q.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-q.ch:
				out <- evt
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "academy:attendance"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues an event as JSON.
func (q *RedisQueue) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, body).Err()
}

// Consume streams events using BRPOP. Malformed entries are dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				var evt Event
				if err := json.Unmarshal([]byte(res[1]), &evt); err == nil {
					out <- evt
				}
			}
		}
	}()
	return out, nil
}
