package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/watchx/internal/models"
)

// ErrQueueClosed is returned when enqueueing onto a closed [WriteQueue].
var ErrQueueClosed = errors.New("watchlist: write queue closed")

// WriteOp selects the remote call a [WriteJob] makes.
type WriteOp int

const (
	OpSet WriteOp = iota
	OpUpdate
)

func (o WriteOp) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	default:
		return ""
	}
}

// WriteJob is one remote write of a full watchlist snapshot.
type WriteJob struct {
	Op     WriteOp
	UserID string
	Items  []models.MediaReference
	Merge  bool

	done chan error
}

// WriteQueue performs remote writes one at a time in FIFO order.
//
// The queue is unbounded so enqueueing never blocks the caller.
type WriteQueue struct {
	remote  DocumentStore
	logger  *log.Logger
	timeout time.Duration

	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []*WriteJob
	busy   bool
	closed bool
	done   chan struct{}
}

// NewWriteQueue starts the worker goroutine. timeout bounds each remote call; zero means no limit.
func NewWriteQueue(remote DocumentStore, logger *log.Logger, timeout time.Duration) *WriteQueue {
	q := &WriteQueue{
		remote:  remote,
		logger:  logger,
		timeout: timeout,
		done:    make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Enqueue appends job without waiting for it to run.
func (q *WriteQueue) Enqueue(job WriteJob) error {
	_, err := q.enqueue(job, false)
	return err
}

// enqueue optionally returns a channel that receives the job's result.
func (q *WriteQueue) enqueue(job WriteJob, wait bool) (<-chan error, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	j := job
	j.Items = append([]models.MediaReference{}, job.Items...)
	if wait {
		j.done = make(chan error, 1)
	}
	q.jobs = append(q.jobs, &j)
	q.cond.Signal()
	return j.done, nil
}

// Pending counts queued jobs, including one in flight.
func (q *WriteQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	if q.busy {
		n++
	}
	return n
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to end.
func (q *WriteQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("write queue drain: %w", ctx.Err())
	}
}

func (q *WriteQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.jobs) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		q.busy = true
		q.mu.Unlock()

		err := q.execute(job)

		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()

		if job.done != nil {
			job.done <- err
		}
	}
}

func (q *WriteQueue) execute(job *WriteJob) error {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	doc := models.WatchlistDocument{Watchlist: job.Items}

	var err error
	switch job.Op {
	case OpSet:
		err = q.remote.Set(ctx, job.UserID, doc, job.Merge)
	case OpUpdate:
		err = q.remote.Update(ctx, job.UserID, doc)
	default:
		err = fmt.Errorf("unknown write op %d", job.Op)
	}

	if err != nil {
		q.logger.Error("remote write failed", "op", job.Op, "user", job.UserID, "items", len(job.Items), "error", err)
		return err
	}
	q.logger.Debug("remote write", "op", job.Op, "user", job.UserID, "items", len(job.Items))
	return nil
}
