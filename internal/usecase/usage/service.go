// Package usage reports per-endpoint API usage from the ledger.
package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	domusage "github.com/kailas-cloud/careatlas/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	ledger   LedgerReader
	provider string
	now      func() time.Time
}

// New creates a Service reporting on provider.
func New(ledger LedgerReader, provider string) *Service {
	return &Service{ledger: ledger, provider: provider, now: time.Now}
}

// GetReport builds the usage report of every known endpoint for date
// (YYYY-MM-DD, UTC). An empty date means today.
func (s *Service) GetReport(ctx context.Context, date string) (domusage.Report, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = domusage.Day(s.now())
	} else if _, err := time.Parse(domusage.DateLayout, date); err != nil {
		return domusage.Report{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidQuery)
	}

	kinds := lookup.Kinds()
	entries := make([]domusage.Entry, 0, len(kinds))
	for _, k := range kinds {
		e, err := s.ledger.Entry(ctx, s.provider, string(k), date)
		if err != nil {
			return domusage.Report{}, fmt.Errorf("read usage %s: %w", k, err)
		}
		entries = append(entries, e)
	}
	return domusage.NewReport(s.provider, date, entries), nil
}
