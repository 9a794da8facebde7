package usage

import (
	"context"

	domusage "github.com/kailas-cloud/careatlas/internal/domain/usage"
)

// LedgerReader provides read-only access to the usage ledger.
type LedgerReader interface {
	Entry(ctx context.Context, provider, endpoint, date string) (domusage.Entry, error)
}
