package catalog

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInsufficientStock = "INSUFFICIENT_STOCK"
	TextCodeVariantNotFound   = "VARIANT_NOT_FOUND"
)

// InsufficientStock reports a variant that cannot cover the requested quantity.
func InsufficientStock(variantID, requested, available int64) error {
	return goerrors.New("insufficient stock for product variant", goerrors.CategoryConflict).
		WithTextCode(TextCodeInsufficientStock).
		WithMetadata(map[string]any{
			"product_variant_id": variantID,
			"requested":          requested,
			"available":          available,
		})
}

// VariantNotFound reports a variant that does not exist, was deleted or
// belongs to another product.
func VariantNotFound(variantID, productID int64) error {
	return goerrors.New("product variant not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeVariantNotFound).
		WithMetadata(map[string]any{
			"product_variant_id": variantID,
			"product_id":         productID,
		})
}

// IsInsufficientStock reports whether err was raised by a stock check.
func IsInsufficientStock(err error) bool {
	var e *goerrors.Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.TextCode == TextCodeInsufficientStock
}
