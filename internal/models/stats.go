package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Ratio is a share in [0, 1]. Valid is false when the denominator was zero,
// in which case the ratio is not applicable.
type Ratio struct {
	Value float64
	Valid bool
}

// NewRatio returns part/whole, or an invalid Ratio when whole is zero.
func NewRatio(part, whole int) Ratio {
	if whole == 0 {
		return Ratio{}
	}
	return Ratio{Value: float64(part) / float64(whole), Valid: true}
}

// String formats the ratio as a percentage with one decimal, or "N/A".
func (r Ratio) String() string {
	if !r.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(r.Value*100, 'f', 1, 64) + "%"
}

// MarshalJSON encodes an invalid ratio as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio{}
		return nil
	}
	if err := json.Unmarshal(data, &r.Value); err != nil {
		return err
	}
	r.Valid = true
	return nil
}

// Stats is the aggregate view over the collection.
type Stats struct {
	Total     int            `json:"total"`
	ReadCount int            `json:"read_count"`
	Genres    map[string]int `json:"genres"`
	ReadRatio Ratio          `json:"read_ratio"`
}

// GenreRatio returns the share of the collection in genre.
func (s Stats) GenreRatio(genre string) Ratio {
	return NewRatio(s.Genres[genre], s.Total)
}

// GenreNames returns the genre labels in lexical order.
func (s Stats) GenreNames() []string {
	return slices.Sorted(maps.Keys(s.Genres))
}

// Report renders the statistics as a short plain-text block.
func (s Stats) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total books: %d\n", s.Total)
	fmt.Fprintf(&b, "Read: %d (%s)\n", s.ReadCount, s.ReadRatio)
	for _, g := range s.GenreNames() {
		fmt.Fprintf(&b, "  %s: %d (%s)\n", g, s.Genres[g], s.GenreRatio(g))
	}
	return b.String()
}
