package repositories

import "errors"

var (
	// ErrProductNotFound indicates no product matches the given id or slug.
	ErrProductNotFound = errors.New("product repository: product not found")
	// ErrCatalogUnavailable indicates the catalog backing store could not be read.
	ErrCatalogUnavailable = errors.New("product repository: catalog unavailable")
)
