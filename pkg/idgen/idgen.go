// Package idgen provides ID generation utilities for the application.
// It encapsulates the ID generation implementation, making it easy to change
// the underlying ID generation strategy in the future.
package idgen

import (
	"github.com/rs/xid"
)

// NewID generates a new globally unique, sortable identifier.
// Returns a 20-character string using xid format.
// The generated ID is:
// - Globally unique
// - Sortable by creation time
// - URL-safe (base32 encoded)
// - 20 characters long
func NewID() string {
	return xid.New().String()
}

// NewRequestID generates a unique ID for request tracking.
// Currently an alias for NewID, but can be customized in the future
// (e.g., adding a prefix like "req_" for better identification).
func NewRequestID() string {
	return NewID()
}

// NewResearchID generates a unique ID for research pipeline runs.
// Currently an alias for NewID, but can be customized in the future
// (e.g., adding a prefix like "res_" for better identification).
func NewResearchID() string {
	return NewID()
}

// NewQueryID generates a unique ID for single evaluation queries.
// Currently an alias for NewID, but can be customized in the future
// (e.g., adding a prefix like "qry_" for better identification).
func NewQueryID() string {
	return NewID()
}
