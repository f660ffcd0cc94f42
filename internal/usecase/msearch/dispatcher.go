package msearch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/esgate/internal/domain/search/request"
	"github.com/kailas-cloud/esgate/internal/domain/search/result"
	"github.com/kailas-cloud/esgate/internal/usecase/search"
)

// Dispatch runs every request against the backend with at most limit calls in
// flight and returns one outcome per request, at the same position.
// A failing request never affects its siblings. took covers a single backend call.
func Dispatch(ctx context.Context, backend search.Backend, reqs []request.Request, limit int) []result.Outcome {
	out := make([]result.Outcome, len(reqs))
	if len(reqs) == 0 {
		return out
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range reqs {
		g.Go(func() error {
			start := time.Now()
			res, err := backend.Search(ctx, reqs[i])
			if err != nil {
				out[i] = result.Failed(err)
				return nil
			}
			out[i] = result.Succeeded(res, time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	return out
}
