// Package catalog holds the relational product model and its repository.
//
// The repository exposes the two capabilities the cache layer relies on:
// FindProductDetailRaw, a left-join over product, variants and option values,
// and DecrementStock, a conditional update run inside the caller's
// transaction. BuildProductDetailView folds the join rows into the cached
// ProductDetailView.
//
// Open supports sqlite (mattn/go-sqlite3) and PostgreSQL (lib/pq) through the
// matching bun dialects.
package catalog
