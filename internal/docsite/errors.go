package docsite

import "errors"

var (
	// ErrSiteNotFound is returned when the site directory does not exist.
	ErrSiteNotFound = errors.New("site directory not found")

	// ErrAssetsNotFound is returned when the directory holding the shipped artifacts does not exist.
	ErrAssetsNotFound = errors.New("assets directory not found")
)
