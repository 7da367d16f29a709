package productcache

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/catalog"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig configures the circuit breaker placed in front of the repository.
type BreakerConfig struct {
	Name             string        `yaml:"name"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// DefaultBreakerConfig trips after 5 requests with at least 60% failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "product-repository",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

type breakerSource struct {
	next ProductSource
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSource guards next with a circuit breaker. While the breaker is
// open, queries fail immediately without reaching the database.
func NewBreakerSource(next ProductSource, cfg BreakerConfig, logger *zap.Logger) ProductSource {
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// a cancelled caller says nothing about database health
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &breakerSource{next: next, cb: cb}
}

func (b *breakerSource) FindProductDetailRaw(ctx context.Context, productID int64) ([]catalog.ProductDetailRow, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FindProductDetailRaw(ctx, productID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "product repository circuit open").
				WithMetadata(map[string]any{"product_id": productID})
		}
		return nil, err
	}
	rows, _ := out.([]catalog.ProductDetailRow)
	return rows, nil
}
