// Package storage persists the book collection as one unit.
package storage

import "github.com/starford/shelf/internal/models"

// Provider reads and writes the full collection. There is no incremental
// path: every Write replaces everything previously stored.
type Provider interface {
	// Read returns every stored record in order. Missing storage yields an
	// empty slice and no error.
	Read() ([]models.Book, error)
	// Write replaces the stored collection with books.
	Write(books []models.Book) error
}

// ChangeDetector is implemented by providers that can tell whether their
// backing storage was modified by someone else since the last Read or Write.
type ChangeDetector interface {
	Changed() (bool, error)
}

// Verify implementations at compile time.
var (
	_ Provider       = (*File)(nil)
	_ ChangeDetector = (*File)(nil)
	_ Provider       = (*SQLite)(nil)
)
