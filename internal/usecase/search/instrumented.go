package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esgate/internal/domain"
	"github.com/kailas-cloud/esgate/internal/domain/search/request"
	"github.com/kailas-cloud/esgate/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/esgate/internal/logger"
	"github.com/kailas-cloud/esgate/internal/metrics"
)

// InstrumentedBackend wraps a Backend with metrics and logging.
type InstrumentedBackend struct {
	inner  Backend
	logger *zap.Logger
}

// NewInstrumentedBackend wraps a backend with observability.
func NewInstrumentedBackend(inner Backend, logger *zap.Logger) *InstrumentedBackend {
	return &InstrumentedBackend{inner: inner, logger: logger}
}

// Search delegates to the inner backend and records the call.
func (b *InstrumentedBackend) Search(ctx context.Context, req request.Request) (result.Result, error) {
	metrics.BackendInFlight.Inc()
	start := time.Now()

	res, err := b.inner.Search(ctx, req)

	duration := time.Since(start)
	metrics.BackendInFlight.Dec()
	metrics.BackendRequestDuration.Observe(duration.Seconds())

	log := logpkg.FromContextOr(ctx, b.logger)

	if err != nil {
		e := domain.AsError(err)
		metrics.BackendRequestsTotal.WithLabelValues(e.TypeName()).Inc()
		log.Warn("Search backend call failed",
			zap.String("index", req.IndexID()),
			zap.Int("status", e.StatusCode()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return result.Result{}, err
	}

	metrics.BackendRequestsTotal.WithLabelValues("ok").Inc()
	log.Debug("Search backend call completed",
		zap.String("index", req.IndexID()),
		zap.Int("hits", len(res.Hits())),
		zap.Uint64("total", res.Total()),
		zap.Duration("duration", duration),
	)
	return res, nil
}
