// Package parser reads book records from import documents: YAML or JSON
// lists, and Markdown "book cards" whose YAML frontmatter holds the fields.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/maruel/ksid"
	"gopkg.in/yaml.v3"

	"github.com/starford/shelf/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// ErrUnsupported is returned by ParseFile for unknown file extensions.
var ErrUnsupported = errors.New("unsupported import format")

// entry mirrors models.Book for decoding. An id is optional; when present
// it is kept so re-importing records already in the library is detected.
type entry struct {
	ID     string   `yaml:"id"`
	Title  string   `yaml:"title"`
	Author string   `yaml:"author"`
	Year   int      `yaml:"year"`
	Genre  string   `yaml:"genre"`
	Read   bool     `yaml:"read"`
	Tags   []string `yaml:"tags"`
}

func (e entry) book() (models.Book, error) {
	b := models.Book{
		Title:  e.Title,
		Author: e.Author,
		Year:   e.Year,
		Genre:  e.Genre,
		Read:   e.Read,
	}
	if e.ID != "" {
		id, err := ksid.Parse(e.ID)
		if err != nil {
			return b, fmt.Errorf("parser: id %q: %w", e.ID, err)
		}
		b.ID = id
	}
	return b, nil
}

// ParseFile dispatches on the extension of name.
func ParseFile(name string, data []byte) ([]models.Book, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return ParseList(data)
	case ".md", ".markdown":
		b, err := ParseCard(data)
		if err != nil {
			return nil, err
		}
		return []models.Book{b}, nil
	default:
		return nil, fmt.Errorf("parser: %s: %w", name, ErrUnsupported)
	}
}

// ParseList decodes a sequence of records. The document is either a bare
// sequence or a mapping with a "books" key. JSON input is accepted since it
// is valid YAML.
func ParseList(data []byte) ([]models.Book, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	if len(root.Content) == 0 {
		return []models.Book{}, nil
	}

	doc := root.Content[0]
	var entries []entry
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("parser: %w", err)
		}
	case yaml.MappingNode:
		var wrapped struct {
			Books []entry `yaml:"books"`
		}
		if err := doc.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("parser: %w", err)
		}
		entries = wrapped.Books
	default:
		return nil, fmt.Errorf("parser: expected a list of books")
	}

	out := make([]models.Book, len(entries))
	for i, e := range entries {
		b, err := e.book()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		out[i] = b
	}
	return out, nil
}

// ParseCard reads one book from a Markdown file with YAML frontmatter.
// When frontmatter lacks a title the first H1 heading is used; when it
// lacks a genre the first tag (frontmatter or inline #tag) is used.
func ParseCard(data []byte) (models.Book, error) {
	fmBlock, body := splitFrontmatter(data)
	if fmBlock == nil {
		return models.Book{}, fmt.Errorf("parser: book card has no frontmatter")
	}

	var e entry
	if err := yaml.Unmarshal(fmBlock, &e); err != nil {
		return models.Book{}, fmt.Errorf("parser: frontmatter: %w", err)
	}

	b, err := e.book()
	if err != nil {
		return models.Book{}, err
	}
	if b.Title == "" {
		b.Title = firstHeading(body)
	}
	if b.Genre == "" {
		if tags := extractTags(body, e.Tags); len(tags) > 0 {
			b.Genre = tags[0]
		}
	}
	return b, nil
}

// splitFrontmatter separates the YAML block between leading --- delimiters
// from the Markdown body. The block is nil when there is no frontmatter.
func splitFrontmatter(data []byte) ([]byte, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	block := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	return block, strings.TrimLeft(string(afterDelim), "\n\r")
}

// extractTags merges frontmatter tags with inline #tags, deduplicated, in
// order of appearance.
func extractTags(body string, fmTags []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range fmTags {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
