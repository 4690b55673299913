package query

import (
	"context"

	domquery "github.com/meritview/cutoffd/internal/domain/query"
)

// Store is the record-store query contract: one filtered, sorted, paginated
// list call per invocation.
type Store interface {
	Query(ctx context.Context, collection, filter, sort string, page, perPage int) (domquery.Page, error)
}

// Authenticator ensures a valid store credential is held before any shard
// dispatch.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context) error
}

// Cache stores computed result pages. Implementations must treat failures
// as misses.
type Cache interface {
	Get(ctx context.Context, key string) (*domquery.Page, bool)
	Set(ctx context.Context, key string, page *domquery.Page)
}
