package services

import (
	"fmt"

	"github.com/desertthunder/mixsync/internal/shared"
)

// CatalogError is a non-success response from the catalog.
type CatalogError struct {
	Op         string // Catalog operation, e.g. "addTracks"
	StatusCode int
	Message    string // Error message from the response body, if any
}

func (e *CatalogError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *CatalogError) Unwrap() error {
	return shared.ErrAPIRequest
}
