package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/testutil"
)

func TestOpenLibrary_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	cfg := LibraryConfig{Driver: DriverJSON, Path: path}

	lib, err := OpenLibrary(context.Background(), cfg, testutil.Logger(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()

	if _, err := lib.Store.Add(context.Background(), testutil.Dune()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not written: %v", err)
	}
}

func TestOpenLibrary_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	cfg := LibraryConfig{Driver: DriverSQLite, Path: path}
	ctx := context.Background()

	lib, err := OpenLibrary(ctx, cfg, testutil.Logger(), false)
	if err != nil {
		t.Fatal(err)
	}
	added, err := lib.Store.Add(ctx, testutil.Dune())
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.Close(); err != nil {
		t.Fatal(err)
	}

	lib, err = OpenLibrary(ctx, cfg, testutil.Logger(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()
	got := lib.Store.List(ctx)
	if len(got) != 1 || got[0] != added {
		t.Errorf("reopened = %+v, want [%+v]", got, added)
	}
}

func TestOpenLibrary_CorruptFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	if err := os.WriteFile(path, []byte("[{"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := OpenLibrary(context.Background(), LibraryConfig{Driver: DriverJSON, Path: path}, testutil.Logger(), false)
	if !errors.Is(err, apperr.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "[{" {
		t.Errorf("corrupt file changed: %q", data)
	}
}

func TestOpenLibrary_CorruptRecovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.json")
	if err := os.WriteFile(path, []byte("[{"), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := OpenLibrary(context.Background(), LibraryConfig{Driver: DriverJSON, Path: path}, testutil.Logger(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()

	if n := len(lib.Store.List(context.Background())); n != 0 {
		t.Errorf("recovered store len = %d, want 0", n)
	}
	entries, _ := os.ReadDir(dir)
	var quarantined bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "library.json.corrupt-") {
			quarantined = true
		}
	}
	if !quarantined {
		t.Error("corrupt file was not moved aside")
	}
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil); !errors.Is(err, errConfigRequired) {
		t.Errorf("err = %v, want errConfigRequired", err)
	}
	app, err := newApplication([]Option{WithConfig(NewDefaultConfig())})
	if err != nil || app.config == nil {
		t.Errorf("app = %+v, err = %v", app, err)
	}
}
