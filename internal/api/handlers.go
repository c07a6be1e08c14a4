package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maruel/ksid"

	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/parser"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	store *library.Store
}

// NewHandler creates a new Handler.
func NewHandler(store *library.Store) *Handler {
	return &Handler{store: store}
}

// bookID parses the {id} URL parameter. On failure it writes a 400 and
// returns false.
func bookID(w http.ResponseWriter, r *http.Request) (ksid.ID, bool) {
	id, err := ksid.Parse(chi.URLParam(r, "id"))
	if err != nil || id.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		var zero ksid.ID
		return zero, false
	}
	return id, true
}

// titleParam reads the required ?title= query parameter.
func titleParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'title' is required"))
		return "", false
	}
	return title, true
}

func decodeBook(w http.ResponseWriter, r *http.Request) (BookRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	return req, true
}

// ListBooks handles GET /api/books.
//
//	@Summary		List all books in insertion order
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	BookListResponse
//	@Security		BearerAuth
//	@Router			/books [get]
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books := h.store.List(r.Context())
	writeJSON(w, http.StatusOK, BookListResponse{Books: books, Total: len(books)})
}

// CreateBook handles POST /api/books.
//
//	@Summary		Add a book
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BookRequest	true	"Book to add"
//	@Success		201		{object}	Book
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books [post]
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBook(w, r)
	if !ok {
		return
	}
	book, err := h.store.Add(r.Context(), req.book())
	if err != nil {
		writeError(w, "create book", err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// ImportBooks handles POST /api/books/import. The body is a YAML or JSON
// list of books; either all are added or none.
//
//	@Summary		Bulk-add books
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	BookListResponse
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/import [post]
func (h *Handler) ImportBooks(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	candidates, err := parser.ParseList(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	added, err := h.store.Import(r.Context(), candidates)
	if err != nil {
		writeError(w, "import books", err)
		return
	}
	writeJSON(w, http.StatusCreated, BookListResponse{Books: added, Total: len(added)})
}

// GetBook handles GET /api/books/{id}.
//
//	@Summary		Get a book by id
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book id"
//	@Success		200	{object}	Book
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id} [get]
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	book, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get book", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// UpdateBook handles PUT /api/books/{id}. The record is replaced whole.
//
//	@Summary		Replace a book
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Book id"
//	@Param			body	body		BookRequest	true	"Replacement"
//	@Success		200		{object}	Book
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id} [put]
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	req, ok := decodeBook(w, r)
	if !ok {
		return
	}
	book, err := h.store.Update(r.Context(), id, req.book())
	if err != nil {
		writeError(w, "update book", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/{id}.
//
//	@Summary		Delete a book
//	@Tags			books
//	@Param			id	path	string	true	"Book id"
//	@Success		204	"Book deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id} [delete]
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	removed, err := h.store.Remove(r.Context(), id)
	if err != nil {
		writeError(w, "delete book", err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBookByTitle handles GET /api/books/by-title?title=.
//
//	@Summary		Get the first book with an exact title
//	@Tags			books
//	@Produce		json
//	@Param			title	query		string	true	"Exact title"
//	@Success		200		{object}	Book
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/by-title [get]
func (h *Handler) GetBookByTitle(w http.ResponseWriter, r *http.Request) {
	title, ok := titleParam(w, r)
	if !ok {
		return
	}
	book, found := h.store.FindByTitle(r.Context(), title)
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// UpdateBookByTitle handles PUT /api/books/by-title?title=.
//
//	@Summary		Replace the first book with an exact title
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			title	query		string		true	"Exact title"
//	@Param			body	body		BookRequest	true	"Replacement"
//	@Success		200		{object}	Book
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/by-title [put]
func (h *Handler) UpdateBookByTitle(w http.ResponseWriter, r *http.Request) {
	title, ok := titleParam(w, r)
	if !ok {
		return
	}
	req, ok := decodeBook(w, r)
	if !ok {
		return
	}
	book, err := h.store.UpdateByTitle(r.Context(), title, req.book())
	if err != nil {
		writeError(w, "update book by title", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBooksByTitle handles DELETE /api/books/by-title?title=. Every book
// with that exact title is removed; zero matches is not an error.
//
//	@Summary		Delete all books with an exact title
//	@Tags			books
//	@Produce		json
//	@Param			title	query		string	true	"Exact title"
//	@Success		200		{object}	RemovedResponse
//	@Security		BearerAuth
//	@Router			/books/by-title [delete]
func (h *Handler) DeleteBooksByTitle(w http.ResponseWriter, r *http.Request) {
	title, ok := titleParam(w, r)
	if !ok {
		return
	}
	n, err := h.store.RemoveByTitle(r.Context(), title)
	if err != nil {
		writeError(w, "delete books by title", err)
		return
	}
	writeJSON(w, http.StatusOK, RemovedResponse{Removed: n})
}

// Search handles GET /api/search.
//
//	@Summary		Case-insensitive search over title and author
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	false	"Search term; empty matches nothing"
//	@Success		200	{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	results := h.store.Search(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Stats handles GET /api/stats.
//
//	@Summary		Collection statistics
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStatsResponse(h.store.Statistics(r.Context())))
}

// Schema handles GET /api/schema.
//
//	@Summary		JSON Schema of a book record
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	object
//	@Router			/schema [get]
func (h *Handler) Schema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.BookSchema())
}
