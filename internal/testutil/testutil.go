// Package testutil provides shared test helpers for building stores.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFile creates a File provider in a temporary directory.
func TestFile(t *testing.T) *storage.File {
	t.Helper()
	f, err := storage.NewFile(filepath.Join(t.TempDir(), "library.json"))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// TestLibrary creates a loaded Store backed by a temporary File provider.
func TestLibrary(t *testing.T, opts ...library.Option) (*library.Store, *storage.File) {
	t.Helper()
	f := TestFile(t)
	opts = append([]library.Option{library.WithLogger(Logger())}, opts...)
	s := library.New(f, opts...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s, f
}

// Dune returns the first sample record.
func Dune() models.Book {
	return models.Book{Title: "Dune", Author: "Herbert", Year: 1965, Genre: "SciFi", Read: false}
}

// Dune2 returns the second sample record.
func Dune2() models.Book {
	return models.Book{Title: "Dune2", Author: "Herbert", Year: 1969, Genre: "SciFi", Read: true}
}

// MustAdd adds b to s and fails the test on error.
func MustAdd(t *testing.T, s *library.Store, b models.Book) models.Book {
	t.Helper()
	added, err := s.Add(context.Background(), b)
	if err != nil {
		t.Fatalf("Add(%q): %v", b.Title, err)
	}
	return added
}
