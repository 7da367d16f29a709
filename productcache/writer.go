package productcache

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/catalog"
	"go.uber.org/zap"
)

// ProductCreator stores new products.
type ProductCreator interface {
	CreateProduct(ctx context.Context, in catalog.CreateProductInput) (*catalog.Product, error)
}

// Writer applies catalog writes and invalidates the touched product once the
// write has committed. A negative entry recorded for an id before the product
// existed is dropped on every instance.
type Writer struct {
	creator     ProductCreator
	invalidator *Invalidator
	logger      *zap.Logger
}

func NewWriter(creator ProductCreator, invalidator *Invalidator, opts ...Option) (*Writer, error) {
	if creator == nil {
		return nil, goerrors.New("product creator is required", goerrors.CategoryBadInput)
	}
	if invalidator == nil {
		return nil, goerrors.New("invalidator is required", goerrors.CategoryBadInput)
	}

	o := buildOptions(opts)
	return &Writer{creator: creator, invalidator: invalidator, logger: o.logger}, nil
}

// CreateProduct stores the product and invalidates its id. An invalidation
// failure is logged; the product is committed either way.
func (w *Writer) CreateProduct(ctx context.Context, in catalog.CreateProductInput) (*catalog.Product, error) {
	product, err := w.creator.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}

	if _, err := w.invalidator.Invalidate(context.WithoutCancel(ctx), product.ID); err != nil {
		w.logger.Error("product cache invalidation failed after create",
			zap.Int64("product_id", product.ID),
			zap.Error(err),
		)
	}
	return product, nil
}
