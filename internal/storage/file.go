package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/pretty"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/checksum"
	"github.com/starford/shelf/internal/models"
)

// File implements Provider as a single pretty-printed JSON document.
type File struct {
	path string // absolute

	mu      sync.Mutex
	lastSum string // checksum of the content last read or written; "" if none
}

// NewFile creates a File provider for path. The file itself need not exist.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: path is a directory: %s", abs)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute location of the document.
func (f *File) Path() string {
	return f.path
}

// Read loads and decodes the whole document.
func (f *File) Read() ([]models.Book, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.setSum("")
			return []models.Book{}, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w: %w", f.path, apperr.ErrStorageRead, err)
	}
	books, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", f.path, err)
	}
	f.setSum(checksum.Sum(data))
	return books, nil
}

// Write atomically replaces the document: tmp file → fsync → rename.
func (f *File) Write(books []models.Book) error {
	data, err := encode(books)
	if err != nil {
		return fmt.Errorf("storage: encode: %w: %w", apperr.ErrStorageWrite, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w: %w", apperr.ErrStorageWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".shelf-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w: %w", apperr.ErrStorageWrite, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w: %w", apperr.ErrStorageWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w: %w", apperr.ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w: %w", apperr.ErrStorageWrite, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w: %w", apperr.ErrStorageWrite, err)
	}
	success = true
	f.setSum(checksum.Sum(data))
	return nil
}

// Changed reports whether the document on disk differs from what this
// provider last read or wrote.
func (f *File) Changed() (bool, error) {
	data, err := os.ReadFile(f.path)
	cur := ""
	switch {
	case err == nil:
		cur = checksum.Sum(data)
	case errors.Is(err, os.ErrNotExist):
	default:
		return false, fmt.Errorf("storage: read %s: %w: %w", f.path, apperr.ErrStorageRead, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return cur != f.lastSum, nil
}

// Quarantine moves the current document aside so that a fresh one can be
// written without destroying unreadable data. It returns the new location.
func (f *File) Quarantine() (string, error) {
	dst := f.path + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.Rename(f.path, dst); err != nil {
		return "", fmt.Errorf("storage: quarantine: %w", err)
	}
	f.setSum("")
	return dst, nil
}

func (f *File) setSum(sum string) {
	f.mu.Lock()
	f.lastSum = sum
	f.mu.Unlock()
}

func decode(data []byte) ([]models.Book, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Book{}, nil
	}
	var books []models.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrDecode, err)
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, nil
}

func encode(books []models.Book) ([]byte, error) {
	if books == nil {
		books = []models.Book{}
	}
	data, err := json.Marshal(books)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(data), nil
}
