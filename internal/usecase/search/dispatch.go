package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	"github.com/kailas-cloud/careatlas/internal/logger"
	"github.com/kailas-cloud/careatlas/internal/metrics"
)

// DefaultSourceTimeout bounds a single source call.
const DefaultSourceTimeout = 8 * time.Second

var (
	// ErrSourceSkipped is returned by adapters that cannot serve the query (e.g. no location).
	ErrSourceSkipped = errors.New("source skipped")
	// ErrSourcePanic wraps a panic recovered from an adapter.
	ErrSourcePanic = errors.New("source panicked")
)

// OutcomeStatus is the settled state of one source call.
type OutcomeStatus string

// Outcome statuses.
const (
	StatusOK      OutcomeStatus = "ok"
	StatusError   OutcomeStatus = "error"
	StatusTimeout OutcomeStatus = "timeout"
	StatusSkipped OutcomeStatus = "skipped"
)

// Outcome is the settled result of one source.
type Outcome struct {
	Source   raw.Source
	Status   OutcomeStatus
	Records  []raw.Record
	CacheHit bool
	Cost     float64
	Err      error
	Duration time.Duration
}

// Dispatcher fans a query out to every adapter and settles all of them.
type Dispatcher struct {
	adapters []Adapter
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher. Adapters are ordered by source fan-out order
// (remote, geodata, local); timeout <= 0 uses DefaultSourceTimeout.
func NewDispatcher(timeout time.Duration, logger *zap.Logger, adapters ...Adapter) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	ordered := make([]Adapter, len(adapters))
	copy(ordered, adapters)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sourceRank(ordered[i].Source()) < sourceRank(ordered[j].Source())
	})
	return &Dispatcher{adapters: ordered, timeout: timeout, logger: logger}
}

func sourceRank(src raw.Source) int {
	for i, s := range raw.Sources() {
		if s == src {
			return i
		}
	}
	return len(raw.Sources())
}

// Dispatch calls every adapter concurrently and returns one outcome per adapter
// in fan-out order. It never fails: errors, timeouts and panics become outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, q *domsearch.Query) []Outcome {
	log := logger.FromContextOr(ctx, d.logger)
	outcomes := make([]Outcome, len(d.adapters))

	var wg conc.WaitGroup
	for i, a := range d.adapters {
		wg.Go(func() {
			outcomes[i] = d.settle(ctx, a, q)
		})
	}
	wg.Wait()

	for i := range outcomes {
		o := &outcomes[i]
		metrics.SourceOutcomesTotal.WithLabelValues(string(o.Source), string(o.Status)).Inc()
		if o.Status == StatusSkipped {
			continue
		}
		metrics.SourceDuration.WithLabelValues(string(o.Source)).Observe(o.Duration.Seconds())
		if o.Err != nil {
			log.Warn("search source failed",
				zap.String("source", string(o.Source)),
				zap.String("status", string(o.Status)),
				zap.Duration("duration", o.Duration),
				zap.Error(o.Err),
			)
		}
	}
	return outcomes
}

func (d *Dispatcher) settle(ctx context.Context, a Adapter, q *domsearch.Query) Outcome {
	out := Outcome{Source: a.Source()}
	if !q.Enabled(out.Source) {
		out.Status = StatusSkipped
		return out
	}

	start := time.Now()
	batch, err := d.call(ctx, a, q)
	out.Duration = time.Since(start)

	switch {
	case err == nil:
		out.Status = StatusOK
		out.Records = batch.Records
		out.CacheHit = batch.CacheHit
		out.Cost = batch.Cost
	case errors.Is(err, ErrSourceSkipped):
		out.Status = StatusSkipped
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrSourceTimeout):
		out.Status = StatusTimeout
		out.Err = fmt.Errorf("%w after %s: %w", domain.ErrSourceTimeout, d.timeout, err)
	default:
		out.Status = StatusError
		out.Err = err
	}
	return out
}

// call runs one adapter under its own deadline. A misbehaving adapter that
// ignores ctx is abandoned once the deadline passes.
func (d *Dispatcher) call(ctx context.Context, a Adapter, q *domsearch.Query) (Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type result struct {
		batch Batch
		err   error
	}
	done := make(chan result, 1)

	go func() {
		var (
			pc  panics.Catcher
			res result
		)
		pc.Try(func() {
			res.batch, res.err = a.Lookup(ctx, q)
		})
		if r := pc.Recovered(); r != nil {
			res = result{err: fmt.Errorf("%w: %w", ErrSourcePanic, r.AsError())}
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res.batch, res.err
	case <-ctx.Done():
		return Batch{}, ctx.Err()
	}
}
