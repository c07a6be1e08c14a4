package models

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func validBook() Book {
	return Book{Title: "Dune", Author: "Herbert", Year: 1965, Genre: "SciFi"}
}

func TestValidate_OK(t *testing.T) {
	if err := validBook().Validate(); err != nil {
		t.Fatalf("valid book rejected: %v", err)
	}
}

func TestValidate_MissingFieldsNamed(t *testing.T) {
	b := Book{Year: 1965}
	err := b.Validate()
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation.Errors, got %T: %v", err, err)
	}
	for _, field := range []string{"title", "author", "genre"} {
		if _, ok := verrs[field]; !ok {
			t.Errorf("missing field %q not reported: %v", field, verrs)
		}
	}
	if _, ok := verrs["year"]; ok {
		t.Errorf("year should be valid: %v", verrs)
	}
}

func TestValidate_YearRange(t *testing.T) {
	cases := []struct {
		year int
		ok   bool
	}{
		{1799, false},
		{1800, true},
		{2100, true},
		{2101, false},
		{0, false},
	}
	for _, tc := range cases {
		b := validBook()
		b.Year = tc.year
		err := b.Validate()
		if tc.ok && err != nil {
			t.Errorf("year %d rejected: %v", tc.year, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("year %d accepted", tc.year)
		}
	}
}

func TestNormalize_BlankTitleRejected(t *testing.T) {
	b := validBook()
	b.Title = "   "
	b.Genre = "  SciFi "
	b.Normalize()
	if b.Genre != "SciFi" {
		t.Errorf("genre = %q", b.Genre)
	}
	if err := b.Validate(); err == nil {
		t.Error("blank title should fail after normalize")
	}
}

func TestValidate_InvalidUTF8(t *testing.T) {
	for _, field := range []string{"title", "author", "genre"} {
		b := validBook()
		switch field {
		case "title":
			b.Title = "Caf\xe9"
		case "author":
			b.Author = "Herb\xffert"
		case "genre":
			b.Genre = "Sci\xc3Fi"
		}
		var verrs validation.Errors
		if !errors.As(b.Validate(), &verrs) {
			t.Fatalf("%s: invalid UTF-8 accepted", field)
		}
		if _, ok := verrs[field]; !ok {
			t.Errorf("%s not reported: %v", field, verrs)
		}
	}
}
