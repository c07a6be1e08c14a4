// Package models defines the domain types for Shelf.
package models

import (
	"errors"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/maruel/ksid"
)

// Publication years accepted at entry time.
const (
	MinYear = 1800
	MaxYear = 2100
)

// Book is a single catalog record.
//
// ID is system-assigned and stable; Title is user-editable and not unique.
type Book struct {
	ID     ksid.ID `json:"id" jsonschema:"description=System-assigned identifier"`
	Title  string  `json:"title" jsonschema:"required,minLength=1,description=Book title; not unique"`
	Author string  `json:"author" jsonschema:"required,minLength=1"`
	Year   int     `json:"year" jsonschema:"required,minimum=1800,maximum=2100,description=Publication year"`
	Genre  string  `json:"genre" jsonschema:"required,minLength=1,description=Free-form genre label; case-sensitive"`
	Read   bool    `json:"read" jsonschema:"description=Whether the book has been read"`
}

// Normalize trims surrounding whitespace from the text fields.
func (b *Book) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Genre = strings.TrimSpace(b.Genre)
}

// Validate checks the entry-time rules. The returned error is a
// validation.Errors keyed by JSON field name.
func (b Book) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Title, validation.Required, validUTF8),
		validation.Field(&b.Author, validation.Required, validUTF8),
		validation.Field(&b.Year, validation.Required, validation.Min(MinYear), validation.Max(MaxYear)),
		validation.Field(&b.Genre, validation.Required, validUTF8),
	)
}

// validUTF8 rejects text that JSON encoding would silently rewrite.
var validUTF8 = validation.By(func(value any) error {
	if s, ok := value.(string); ok && !utf8.ValidString(s) {
		return errors.New("must be valid UTF-8")
	}
	return nil
})
