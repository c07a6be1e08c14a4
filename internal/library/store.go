// Package library implements the in-memory book collection and the
// operations over it. Every mutation is flushed to a storage.Provider
// before the call returns.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/maruel/ksid"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventReloaded = "reloaded"
)

// EventCallback is called after a successful mutation. id is empty for
// EventReloaded.
type EventCallback func(kind string, id string)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation traces.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithEventCallback registers cb to be notified of mutations.
func WithEventCallback(cb EventCallback) Option {
	return func(s *Store) {
		s.onEvent = cb
	}
}

// Store owns the ordered book collection for the lifetime of a session.
type Store struct {
	provider storage.Provider
	logger   *slog.Logger
	onEvent  EventCallback

	mu    sync.Mutex
	books []models.Book
}

// New returns an empty Store backed by provider. Call Load to populate it.
func New(provider storage.Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		logger:   slog.Default(),
		books:    []models.Book{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the durable one. Records
// without an id get one; it is persisted with the next mutation.
func (s *Store) Load(_ context.Context) error {
	s.mu.Lock()
	books, err := s.provider.Read()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	assignMissingIDs(books)
	s.books = books
	s.mu.Unlock()

	s.logger.Debug("library: loaded", slog.Int("books", len(books)))
	return nil
}

// Reload re-reads durable storage and reports whether the in-memory
// collection changed as a result. The lock is held across the read so a
// mutation cannot land between the snapshot and the swap.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	s.mu.Lock()
	books, err := s.provider.Read()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	assignMissingIDs(books)

	if slices.Equal(s.books, books) {
		s.mu.Unlock()
		return false, nil
	}
	s.books = books
	s.mu.Unlock()

	s.logger.Info("library: reloaded from storage", slog.Int("books", len(books)))
	s.notify(EventReloaded, "")
	return true, nil
}

// Add validates b, assigns it a fresh id, appends it and persists.
func (s *Store) Add(_ context.Context, b models.Book) (models.Book, error) {
	if err := check(&b); err != nil {
		return models.Book{}, err
	}
	b.ID = ksid.NewID()

	s.mu.Lock()
	s.books = append(s.books, b)
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return b, err
	}

	s.logger.Debug("library: added", slog.String("id", b.ID.String()), slog.String("title", b.Title))
	s.notify(EventCreated, b.ID.String())
	return b, nil
}

// Import validates every candidate, then appends them all and persists once.
// Nothing is added if any candidate is invalid. A candidate carrying an id
// already present in the collection is rejected with apperr.ErrAlreadyExists.
func (s *Store) Import(_ context.Context, books []models.Book) ([]models.Book, error) {
	added := make([]models.Book, len(books))
	for i, b := range books {
		if err := check(&b); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		added[i] = b
	}

	s.mu.Lock()
	seen := make(map[ksid.ID]struct{}, len(s.books)+len(added))
	for _, b := range s.books {
		seen[b.ID] = struct{}{}
	}
	for i := range added {
		if added[i].ID.IsZero() {
			added[i].ID = ksid.NewID()
		}
		if _, dup := seen[added[i].ID]; dup {
			s.mu.Unlock()
			return nil, fmt.Errorf("record %d: id %s: %w", i+1, added[i].ID, apperr.ErrAlreadyExists)
		}
		seen[added[i].ID] = struct{}{}
	}
	s.books = append(s.books, added...)
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return added, err
	}

	s.logger.Info("library: imported", slog.Int("books", len(added)))
	for _, b := range added {
		s.notify(EventCreated, b.ID.String())
	}
	return added, nil
}

// List returns a copy of the collection in insertion order.
func (s *Store) List(_ context.Context) []models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.books)
}

// Search returns the records whose title or author contains term, ignoring
// case, in insertion order. An empty term matches nothing.
func (s *Store) Search(_ context.Context, term string) []models.Book {
	out := []models.Book{}
	if term == "" {
		return out
	}
	needle := strings.ToLower(term)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Author), needle) {
			out = append(out, b)
		}
	}
	return out
}

// Get returns the record with id.
func (s *Store) Get(_ context.Context, id ksid.ID) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexByID(id)
	if i < 0 {
		return models.Book{}, apperr.ErrNotFound
	}
	return s.books[i], nil
}

// FindByTitle returns the first record whose title equals title exactly.
func (s *Store) FindByTitle(_ context.Context, title string) (models.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexByTitle(title)
	if i < 0 {
		return models.Book{}, false
	}
	return s.books[i], true
}

// Update replaces the record with id by replacement, keeping id.
func (s *Store) Update(_ context.Context, id ksid.ID, replacement models.Book) (models.Book, error) {
	if err := check(&replacement); err != nil {
		return models.Book{}, err
	}

	s.mu.Lock()
	i := s.indexByID(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Book{}, apperr.ErrNotFound
	}
	return s.replaceLocked(i, replacement)
}

// UpdateByTitle replaces the first record whose title equals title. The
// record keeps its id.
func (s *Store) UpdateByTitle(_ context.Context, title string, replacement models.Book) (models.Book, error) {
	if err := check(&replacement); err != nil {
		return models.Book{}, err
	}

	s.mu.Lock()
	i := s.indexByTitle(title)
	if i < 0 {
		s.mu.Unlock()
		return models.Book{}, apperr.ErrNotFound
	}
	return s.replaceLocked(i, replacement)
}

// Remove deletes the record with id. It reports whether a record was
// removed; removing an unknown id is a no-op and does not persist.
func (s *Store) Remove(_ context.Context, id ksid.ID) (bool, error) {
	s.mu.Lock()
	i := s.indexByID(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.books = slices.Delete(s.books, i, i+1)
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return true, err
	}

	s.logger.Debug("library: removed", slog.String("id", id.String()))
	s.notify(EventDeleted, id.String())
	return true, nil
}

// RemoveByTitle deletes every record whose title equals title and returns
// how many were removed. The collection is persisted even when nothing
// matched.
func (s *Store) RemoveByTitle(_ context.Context, title string) (int, error) {
	s.mu.Lock()
	var removed []models.Book
	s.books = slices.DeleteFunc(s.books, func(b models.Book) bool {
		if b.Title == title {
			removed = append(removed, b)
			return true
		}
		return false
	})
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return len(removed), err
	}

	s.logger.Debug("library: removed by title", slog.String("title", title), slog.Int("count", len(removed)))
	for _, b := range removed {
		s.notify(EventDeleted, b.ID.String())
	}
	return len(removed), nil
}

// Statistics aggregates the collection.
func (s *Store) Statistics(_ context.Context) models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.Stats{
		Total:  len(s.books),
		Genres: make(map[string]int),
	}
	for _, b := range s.books {
		if b.Read {
			st.ReadCount++
		}
		st.Genres[b.Genre]++
	}
	st.ReadRatio = models.NewRatio(st.ReadCount, st.Total)
	return st
}

// replaceLocked swaps the record at i and persists. It releases s.mu.
func (s *Store) replaceLocked(i int, replacement models.Book) (models.Book, error) {
	replacement.ID = s.books[i].ID
	s.books[i] = replacement
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return replacement, err
	}

	s.logger.Debug("library: updated", slog.String("id", replacement.ID.String()))
	s.notify(EventUpdated, replacement.ID.String())
	return replacement, nil
}

// persistLocked writes the full collection. The in-memory state is not
// rolled back when the write fails.
func (s *Store) persistLocked() error {
	if err := s.provider.Write(s.books); err != nil {
		s.logger.Error("library: persist failed", slog.String("error", err.Error()))
		if !errors.Is(err, apperr.ErrStorageWrite) {
			err = fmt.Errorf("%w: %w", apperr.ErrStorageWrite, err)
		}
		return err
	}
	return nil
}

func (s *Store) indexByID(id ksid.ID) int {
	return slices.IndexFunc(s.books, func(b models.Book) bool { return b.ID == id })
}

func (s *Store) indexByTitle(title string) int {
	return slices.IndexFunc(s.books, func(b models.Book) bool { return b.Title == title })
}

func (s *Store) notify(kind, id string) {
	if s.onEvent != nil {
		s.onEvent(kind, id)
	}
}

// check normalizes b and validates it, wrapping failures in
// apperr.ErrValidation. The ozzo validation.Errors stays in the chain.
func check(b *models.Book) error {
	b.Normalize()
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	return nil
}

func assignMissingIDs(books []models.Book) {
	for i := range books {
		if books[i].ID.IsZero() {
			books[i].ID = ksid.NewID()
		}
	}
}
