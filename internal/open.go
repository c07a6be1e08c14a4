package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// Library bundles a loaded Store with the provider behind it.
type Library struct {
	Store    *library.Store
	Provider storage.Provider
	close    func() error
}

// Close releases the provider's resources.
func (l *Library) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

// OpenLibrary builds the configured provider and loads the store from it.
//
// With recoverCorrupt set, an undecodable JSON document is moved aside and
// the session starts empty; otherwise the decode error is returned so that
// nothing overwrites it.
func OpenLibrary(ctx context.Context, cfg LibraryConfig, logger *slog.Logger, recoverCorrupt bool, opts ...library.Option) (*Library, error) {
	lib := &Library{}
	var file *storage.File

	switch cfg.Driver {
	case DriverSQLite:
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		lib.Provider = db
		lib.close = db.Close
	default:
		f, err := storage.NewFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		lib.Provider = f
		file = f
	}

	opts = append([]library.Option{library.WithLogger(logger)}, opts...)
	lib.Store = library.New(lib.Provider, opts...)

	err := lib.Store.Load(ctx)
	if err != nil && recoverCorrupt && file != nil && errors.Is(err, apperr.ErrDecode) {
		moved, qErr := file.Quarantine()
		if qErr != nil {
			_ = lib.Close()
			return nil, fmt.Errorf("load library: %w (quarantine failed: %v)", err, qErr)
		}
		logger.Warn("library file unreadable, starting empty",
			slog.String("error", err.Error()),
			slog.String("moved_to", moved))
		err = lib.Store.Load(ctx)
	}
	if err != nil {
		_ = lib.Close()
		return nil, fmt.Errorf("load library: %w", err)
	}
	return lib, nil
}
