package di

import (
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
)

// NewLogger builds a production logger, or a development one when
// cfg.Development is set, at cfg.Level.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid log level").
			WithMetadata(map[string]any{"level": cfg.Level})
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	logger, err := zc.Build()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build logger")
	}
	return logger, nil
}
