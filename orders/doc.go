// Package orders places orders against the catalog.
//
// Stock checks, the order rows and the stock decrements share one database
// transaction. Cached product details are invalidated only after that
// transaction commits.
package orders
