package search

import (
	"context"

	"github.com/kailas-cloud/esgate/internal/domain/search/request"
	"github.com/kailas-cloud/esgate/internal/domain/search/result"
)

// Backend executes one internal query. Implementations must be safe for
// concurrent use; the same handle is shared by every request.
type Backend interface {
	Search(ctx context.Context, req request.Request) (result.Result, error)
}
