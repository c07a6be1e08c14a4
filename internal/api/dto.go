package api

import "github.com/starford/shelf/internal/models"

// BookRequest is the request body for creating or replacing a book.
type BookRequest struct {
	Title  string `json:"title" example:"Dune" validate:"required"`
	Author string `json:"author" example:"Frank Herbert" validate:"required"`
	Year   int    `json:"year" example:"1965" validate:"required"`
	Genre  string `json:"genre" example:"SciFi" validate:"required"`
	Read   bool   `json:"read" example:"false"`
}

func (r BookRequest) book() models.Book {
	return models.Book{
		Title:  r.Title,
		Author: r.Author,
		Year:   r.Year,
		Genre:  r.Genre,
		Read:   r.Read,
	}
}

// Book is the book response type (aliased from the domain layer).
type Book = models.Book

// BookListResponse wraps a listing.
type BookListResponse struct {
	Books []Book `json:"books" validate:"required"`
	Total int    `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []Book `json:"results" validate:"required"`
}

// RemovedResponse reports how many records a title delete removed.
type RemovedResponse struct {
	Removed int `json:"removed" example:"1"`
}

// StatsResponse is the aggregate view plus display-ready percentages.
type StatsResponse struct {
	models.Stats
	ReadPercent   string            `json:"read_percent" example:"50.0%"`
	GenrePercents map[string]string `json:"genre_percents"`
}

func newStatsResponse(st models.Stats) StatsResponse {
	resp := StatsResponse{
		Stats:         st,
		ReadPercent:   st.ReadRatio.String(),
		GenrePercents: make(map[string]string, len(st.Genres)),
	}
	for g := range st.Genres {
		resp.GenrePercents[g] = st.GenreRatio(g).String()
	}
	return resp
}
