// Package snapshot defines the collaborator that reads the current price and
// availability of a tracked product, plus an HTTP implementation.
package snapshot

import (
	"context"

	"github.com/albapepper/dealwatch/internal/catalog"
)

// Source fetches the current snapshot for a tracked product. Implementations
// must honor ctx cancellation; the scheduler bounds every call with a
// per-fetch timeout.
type Source interface {
	Fetch(ctx context.Context, p catalog.Product) (catalog.Snapshot, error)
}
