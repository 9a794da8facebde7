package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
)

var (
	// ErrQueueFull is returned when an event is dropped because the queue is full.
	ErrQueueFull = errors.New("analytics queue full")
	// ErrSinkClosed is returned for events recorded after Close.
	ErrSinkClosed = errors.New("analytics sink closed")
)

// recorder is the consumer interface of the wrapped sink (ISP).
type recorder interface {
	Record(ctx context.Context, e analytics.Event) error
}

// AsyncSink decouples callers from a slow sink with a bounded queue drained
// by a single worker. Record never blocks.
type AsyncSink struct {
	inner         recorder
	queue         chan analytics.Event
	done          chan struct{}
	recordTimeout time.Duration
	dropped       prometheus.Counter
	logger        *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewAsyncSink starts the worker. dropped may be nil.
func NewAsyncSink(inner recorder, size int, recordTimeout time.Duration, dropped prometheus.Counter, logger *zap.Logger) *AsyncSink {
	if size <= 0 {
		size = 1
	}
	s := &AsyncSink{
		inner:         inner,
		queue:         make(chan analytics.Event, size),
		done:          make(chan struct{}),
		recordTimeout: recordTimeout,
		dropped:       dropped,
		logger:        logger,
	}
	go s.run()
	return s
}

// Record enqueues e. A full queue drops the event.
func (s *AsyncSink) Record(_ context.Context, e analytics.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- e:
		return nil
	default:
		s.drop()
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until queued events are written or ctx ends.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.queue {
		s.write(e)
	}
}

func (s *AsyncSink) write(e analytics.Event) {
	var pc panics.Catcher
	pc.Try(func() {
		ctx := context.Background()
		if s.recordTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.recordTimeout)
			defer cancel()
		}
		if err := s.inner.Record(ctx, e); err != nil {
			s.drop()
			s.logger.Warn("analytics write failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		}
	})
	if r := pc.Recovered(); r != nil {
		s.drop()
		s.logger.Error("analytics sink panicked", zap.String("event_id", e.ID.String()), zap.Error(r.AsError()))
	}
}

func (s *AsyncSink) drop() {
	if s.dropped != nil {
		s.dropped.Inc()
	}
}
