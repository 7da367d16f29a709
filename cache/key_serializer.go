package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

const (
	// ProductItemNamespace prefixes cached product detail entries.
	ProductItemNamespace = "PRO_ITEM"
	// ProductLockNamespace prefixes the rebuild lock of a product.
	ProductLockNamespace = "PRO_LOCK"
	// DefaultInvalidationChannel carries product update events.
	DefaultInvalidationChannel = "product_update"
)

// KeySerializer builds a cache key from a namespace + arbitrary args.
// It is responsible for producing stable keys across processes, since every
// instance must agree on the key of a given product.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// defaultKeySerializer renders scalar arguments verbatim and joins segments with KeySeparator.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from namespace and args.
func (s *defaultKeySerializer) SerializeKey(namespace string, args ...any) string {
	if len(args) == 0 {
		return namespace
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, namespace)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}

	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "nil"
		}
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = s.serializeValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ProductKey returns the shared store key holding the detail of productID.
func ProductKey(productID int64) string {
	return defaultSerializer.SerializeKey(ProductItemNamespace, productID)
}

// ProductLockKey returns the rebuild lock key of productID.
func ProductLockKey(productID int64) string {
	return defaultSerializer.SerializeKey(ProductLockNamespace, productID)
}

var defaultSerializer = NewDefaultKeySerializer()
