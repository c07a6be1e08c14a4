package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shelf/internal/library"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(store *library.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/books", h.ListBooks)
	r.Post("/books", h.CreateBook)
	r.Post("/books/import", h.ImportBooks)

	// Title-keyed access; the first match wins except for delete.
	r.Get("/books/by-title", h.GetBookByTitle)
	r.Put("/books/by-title", h.UpdateBookByTitle)
	r.Delete("/books/by-title", h.DeleteBooksByTitle)

	r.Get("/books/{id}", h.GetBook)
	r.Put("/books/{id}", h.UpdateBook)
	r.Delete("/books/{id}", h.DeleteBook)

	r.Get("/search", h.Search)
	r.Get("/stats", h.Stats)
	r.Get("/schema", h.Schema)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
