package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the app against a library file in a temp dir and returns
// stdout.
func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	argv := append([]string{"shelf", "-c", configPath}, args...)
	err := app.Run(context.Background(), argv)
	return out.String(), err
}

func testConfig(t *testing.T) (configPath, libraryPath string) {
	t.Helper()
	dir := t.TempDir()
	libraryPath = filepath.Join(dir, "library.json")
	configPath = filepath.Join(dir, "config.yaml")
	content := "library:\n  driver: json\n  path: " + libraryPath + "\n  watch: false\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, libraryPath
}

func TestCLI_AddListSearchStats(t *testing.T) {
	cfg, libPath := testConfig(t)

	out, err := runCLI(t, cfg, "list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "No books." {
		t.Errorf("empty list = %q", out)
	}

	if _, err := runCLI(t, cfg, "add", "--title", "Dune", "--author", "Herbert", "--year", "1965", "--genre", "SciFi"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, cfg, "add", "-t", "Dune2", "-a", "Herbert", "-y", "1969", "-g", "SciFi", "--read"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(libPath); err != nil {
		t.Fatalf("library file not written: %v", err)
	}

	out, _ = runCLI(t, cfg, "list")
	if !strings.Contains(out, "Dune2") || !strings.Contains(out, "TITLE") {
		t.Errorf("list = %q", out)
	}

	out, _ = runCLI(t, cfg, "search", "herb")
	if strings.Count(out, "Herbert") != 2 {
		t.Errorf("search = %q", out)
	}

	out, _ = runCLI(t, cfg, "stats")
	if !strings.Contains(out, "Read: 1 (50.0%)") || !strings.Contains(out, "SciFi: 2 (100.0%)") {
		t.Errorf("stats = %q", out)
	}
}

func TestCLI_AddRejectsInvalidYear(t *testing.T) {
	cfg, libPath := testConfig(t)
	_, err := runCLI(t, cfg, "add", "--title", "Old", "--author", "A", "--year", "1700", "--genre", "X")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, statErr := os.Stat(libPath); !os.IsNotExist(statErr) {
		t.Errorf("library file should not exist, stat err = %v", statErr)
	}
}

func TestCLI_EditAndDeleteByTitle(t *testing.T) {
	cfg, _ := testConfig(t)
	if _, err := runCLI(t, cfg, "add", "-t", "Dune", "-a", "Herbert", "-y", "1965", "-g", "SciFi"); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, cfg, "edit", "--by-title", "Dune", "--read"); err != nil {
		t.Fatal(err)
	}
	out, _ := runCLI(t, cfg, "stats")
	if !strings.Contains(out, "Read: 1 (100.0%)") {
		t.Errorf("stats after edit = %q", out)
	}

	out, err := runCLI(t, cfg, "delete", "--title", "Dune")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "Deleted 1 book(s)" {
		t.Errorf("delete = %q", out)
	}
	out, _ = runCLI(t, cfg, "delete", "--title", "Dune")
	if strings.TrimSpace(out) != "Deleted 0 book(s)" {
		t.Errorf("second delete = %q", out)
	}
}

func TestCLI_Import(t *testing.T) {
	cfg, _ := testConfig(t)
	dir := t.TempDir()
	files := map[string]string{
		"list.yaml": "- {title: Dune, author: Herbert, year: 1965, genre: SciFi}\n",
		"emma.md":   "---\ntitle: Emma\nauthor: Austen\nyear: 1815\ntags: [novel]\n---\n\n# Emma\n",
		"notes.txt": "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := runCLI(t, cfg, "import", dir)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "Imported 2 book(s)" {
		t.Errorf("import = %q", out)
	}
	out, _ = runCLI(t, cfg, "stats")
	if !strings.Contains(out, "novel: 1") {
		t.Errorf("stats = %q", out)
	}
}

func TestCLI_CorruptFileIsNotOverwritten(t *testing.T) {
	cfg, libPath := testConfig(t)
	if err := os.WriteFile(libPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, cfg, "add", "-t", "Dune", "-a", "Herbert", "-y", "1965", "-g", "SciFi"); err == nil {
		t.Fatal("expected decode error")
	}
	data, _ := os.ReadFile(libPath)
	if string(data) != "{not json" {
		t.Errorf("corrupt file was modified: %q", data)
	}
}
