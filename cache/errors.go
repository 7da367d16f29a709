package cache

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeStoreUnavailable = "STORE_UNAVAILABLE"
	TextCodeNotFound         = "PRODUCT_NOT_FOUND"
	TextCodeRepository       = "REPOSITORY_ERROR"
	TextCodeInvalidPayload   = "INVALID_CACHE_PAYLOAD"
)

// StoreUnavailable wraps a transport failure of the shared store.
func StoreUnavailable(err error, op, key string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "key-value store unavailable").
		WithTextCode(TextCodeStoreUnavailable).
		WithMetadata(map[string]any{"op": op, "key": key})
}

// NotFound reports a product id the repository does not know about.
func NotFound(productID int64) error {
	return goerrors.New("product not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithMetadata(map[string]any{"product_id": productID})
}

// RepositoryError wraps a failure of the source-of-truth query.
func RepositoryError(err error, productID int64) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "product repository query failed").
		WithTextCode(TextCodeRepository).
		WithMetadata(map[string]any{"product_id": productID})
}

// InvalidPayload reports a cached entry that could not be encoded or decoded.
func InvalidPayload(err error, key string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid cache payload").
		WithTextCode(TextCodeInvalidPayload).
		WithMetadata(map[string]any{"key": key})
}

// IsStoreUnavailable reports whether err came from an unreachable shared store.
func IsStoreUnavailable(err error) bool {
	return hasTextCode(err, TextCodeStoreUnavailable)
}

// IsNotFound reports whether err marks a missing product.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsRepositoryError reports whether err came from the repository query.
func IsRepositoryError(err error) bool {
	return hasTextCode(err, TextCodeRepository)
}

func hasTextCode(err error, code string) bool {
	var e *goerrors.Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.TextCode == code
}
