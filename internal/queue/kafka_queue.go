package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Tetsu-is/social-feed/internal/metrics"
	"github.com/segmentio/kafka-go"
)

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	MaxAttempts int
}

// KafkaQueue publishes jobs to a topic and consumes them through a consumer
// group. Offsets are committed in fetch order once every earlier message of
// the partition has been handled; failed jobs are re-published to the topic.
type KafkaQueue struct {
	writer      kafkaWriter
	newReader   func() kafkaReader
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

const maxRepublishBackoff = 5 * time.Second

func NewKafkaQueue(cfg KafkaConfig, logger *slog.Logger) *KafkaQueue {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	newReader := func() kafkaReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			Topic:       cfg.Topic,
			MinBytes:    1,
			MaxBytes:    10 << 20,
			StartOffset: kafka.FirstOffset,
		})
	}
	return newKafkaQueue(writer, newReader, cfg.MaxAttempts, logger)
}

func newKafkaQueue(w kafkaWriter, newReader func() kafkaReader, maxAttempts int, logger *slog.Logger) *KafkaQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &KafkaQueue{
		writer:      w,
		newReader:   newReader,
		maxAttempts: maxAttempts,
		backoff:     100 * time.Millisecond,
		logger:      logger,
	}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, name string, payload any) error {
	job, err := newJob(name, payload)
	if err != nil {
		return err
	}
	return q.publish(ctx, job)
}

func (q *KafkaQueue) publish(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.ID),
		Value: raw,
		Time:  time.Now(),
	})
}

func (q *KafkaQueue) Consume(ctx context.Context, concurrency int, h Handler) error {
	reader := q.newReader()
	defer func() {
		_ = reader.Close()
	}()

	tracker := newCommitTracker()
	sem := make(chan struct{}, max(concurrency, 1))
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		m, err := reader.FetchMessage(ctx)
		if err != nil {
			<-sem
			if ctx.Err() != nil {
				return nil
			}
			q.logger.Error("kafka fetch failed", "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		f := tracker.track(m)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if !q.handle(ctx, m, h) {
				return
			}
			if err := tracker.ack(context.WithoutCancel(ctx), reader, f); err != nil {
				q.logger.Error("kafka commit failed", "partition", m.Partition, "offset", m.Offset, "error", err)
			}
		}()
	}
}

// handle runs h for one message and reports whether its offset may be committed.
func (q *KafkaQueue) handle(ctx context.Context, m kafka.Message, h Handler) bool {
	var job Job
	if err := json.Unmarshal(m.Value, &job); err != nil {
		q.logger.Error("dropping malformed job", "partition", m.Partition, "offset", m.Offset, "error", err)
		metrics.QueueJobs.WithLabelValues("kafka", "failed").Inc()
		return true
	}

	err := h(ctx, job)
	if err == nil {
		metrics.QueueJobs.WithLabelValues("kafka", "done").Inc()
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	job.Attempts++
	if job.Attempts >= q.maxAttempts {
		q.logger.Error("job exhausted attempts", "job_id", job.ID, "name", job.Name, "attempts", job.Attempts, "error", err)
		metrics.QueueJobs.WithLabelValues("kafka", "failed").Inc()
		return true
	}

	q.logger.Warn("job failed, republishing", "job_id", job.ID, "name", job.Name, "attempts", job.Attempts, "error", err)
	if err := q.republish(ctx, job); err != nil {
		// 停止中: コミットしないので再起動後に再配信される
		return false
	}
	metrics.QueueJobs.WithLabelValues("kafka", "retried").Inc()
	return true
}

// republish writes job back to the topic, retrying until it succeeds or ctx
// is done. The partition's commits wait on it either way.
func (q *KafkaQueue) republish(ctx context.Context, job Job) error {
	backoff := q.backoff
	for {
		err := q.publish(ctx, job)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		q.logger.Error("republish failed", "job_id", job.ID, "retry_in", backoff, "error", err)
		sleepCtx(ctx, backoff)
		backoff = min(backoff*2, maxRepublishBackoff)
	}
}

func (q *KafkaQueue) Close() error { return q.writer.Close() }

type inflight struct {
	msg  kafka.Message
	done bool
}

// commitTracker keeps per-partition fetch order so that an offset is only
// committed after every earlier offset has been handled.
type commitTracker struct {
	mu         sync.Mutex
	partitions map[int][]*inflight
}

func newCommitTracker() *commitTracker {
	return &commitTracker{partitions: map[int][]*inflight{}}
}

func (t *commitTracker) track(m kafka.Message) *inflight {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := &inflight{msg: m}
	t.partitions[m.Partition] = append(t.partitions[m.Partition], f)
	return f
}

// ack marks f handled and commits the longest handled prefix of its partition.
func (t *commitTracker) ack(ctx context.Context, r kafkaReader, f *inflight) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f.done = true
	pending := t.partitions[f.msg.Partition]
	n := 0
	for n < len(pending) && pending[n].done {
		n++
	}
	if n == 0 {
		return nil
	}
	last := pending[n-1].msg
	t.partitions[f.msg.Partition] = pending[n:]
	return r.CommitMessages(ctx, last)
}
