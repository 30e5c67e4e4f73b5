package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is the envelope every driver stores and delivers.
type Job struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt int64           `json:"enqueued_at"`
}

// Decode unmarshals the job payload into v.
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s job %s: %w", j.Name, j.ID, err)
	}
	return nil
}

// Handler processes one delivery. A non-nil error makes the job eligible for
// redelivery until the driver's attempt limit is reached.
type Handler func(ctx context.Context, job Job) error

// Queue delivers jobs at least once.
type Queue interface {
	Enqueue(ctx context.Context, name string, payload any) error
	// Consume blocks until ctx is done, running at most concurrency handlers at once.
	Consume(ctx context.Context, concurrency int, h Handler) error
	Close() error
}

func newJob(name string, payload any) (Job, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Job{}, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Job{
		ID:         id.String(),
		Name:       name,
		Payload:    raw,
		EnqueuedAt: time.Now().UnixMilli(),
	}, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
