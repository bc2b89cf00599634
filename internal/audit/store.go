package audit

import (
	"context"

	"github.com/tkingovr/originguard/api"
)

// Store persists request lifecycle records and serves them back for the status API.
type Store interface {
	// Write appends a request record.
	Write(ctx context.Context, record *api.RequestRecord) error

	// Query retrieves records matching the filter.
	Query(ctx context.Context, filter api.QueryFilter) ([]*api.RequestRecord, error)

	// Stats returns aggregate statistics.
	Stats(ctx context.Context) (*api.RequestStats, error)

	// Subscribe returns a channel that receives new records in real time.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context) (<-chan *api.RequestRecord, func())

	// Close shuts down the store and flushes any buffers.
	Close() error
}
