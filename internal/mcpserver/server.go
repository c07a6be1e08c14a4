// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the library to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/maruel/ksid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
)

const (
	formatURI = "shelf://book-format"
	schemaURI = "shelf://book-schema"
)

// Server wraps the MCP server with the library tools.
type Server struct {
	mcp   *server.MCPServer
	store *library.Store
}

// New creates a new MCP server with all library tools registered.
func New(store *library.Store) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Shelf",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_books",
		mcp.WithDescription("List every book in insertion order."),
	), s.listBooks)

	s.mcp.AddTool(mcp.NewTool("search_books",
		mcp.WithDescription("Case-insensitive substring search over titles and authors."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term")),
	), s.searchBooks)

	s.mcp.AddTool(mcp.NewTool("add_book",
		mcp.WithDescription("Add a book. Read the format via get_book_format or the "+
			formatURI+" resource first."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Book title")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Author name")),
		mcp.WithNumber("year", mcp.Required(), mcp.Description("Publication year, 1800-2100")),
		mcp.WithString("genre", mcp.Required(), mcp.Description("Genre label")),
		mcp.WithBoolean("read", mcp.Description("Whether the book has been read")),
	), s.addBook)

	s.mcp.AddTool(mcp.NewTool("update_book",
		mcp.WithDescription("Update a book. Omitted fields keep their current value. "+
			"Target by id, or by title when no id is known (first exact match)."),
		mcp.WithString("id", mcp.Description("Book id")),
		mcp.WithString("match_title", mcp.Description("Exact title of the book to update when id is empty")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("author", mcp.Description("New author")),
		mcp.WithNumber("year", mcp.Description("New year")),
		mcp.WithString("genre", mcp.Description("New genre")),
		mcp.WithBoolean("read", mcp.Description("New read status")),
	), s.updateBook)

	s.mcp.AddTool(mcp.NewTool("delete_book",
		mcp.WithDescription("Delete the book with the given id, or every book with the exact title."),
		mcp.WithString("id", mcp.Description("Book id")),
		mcp.WithString("title", mcp.Description("Exact title; removes all matches")),
	), s.deleteBook)

	s.mcp.AddTool(mcp.NewTool("library_stats",
		mcp.WithDescription("Total books, read count, read percentage and per-genre counts."),
	), s.libraryStats)

	s.mcp.AddTool(mcp.NewTool("get_book_format",
		mcp.WithDescription("Returns the book record format and store file layout."),
	), s.getBookFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Book Format",
			mcp.WithResourceDescription("Book record fields, validation rules and store file layout."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBookFormatResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(schemaURI, "Book JSON Schema",
			mcp.WithResourceDescription("JSON Schema of a stored book record."),
			mcp.WithMIMEType("application/schema+json"),
		),
		s.readBookSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// errorResult flattens field errors so the client sees which input to fix.
func errorResult(err error) *mcp.CallToolResult {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid book: %v", verrs))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listBooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.List(ctx)), nil
}

func (s *Server) searchBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.store.Search(ctx, query)), nil
}

func (s *Server) addBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	year, err := req.RequireFloat("year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := wholeYear(year); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	genre, err := req.RequireString("genre")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	added, err := s.store.Add(ctx, models.Book{
		Title:  title,
		Author: author,
		Year:   int(year),
		Genre:  genre,
		Read:   req.GetBool("read", false),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(added), nil
}

// wholeYear rejects fractional years, which int conversion would truncate
// into range.
func wholeYear(year float64) error {
	if year != math.Trunc(year) {
		return fmt.Errorf("year must be a whole number, got %v", year)
	}
	return nil
}

// target resolves the book an update refers to.
func (s *Server) target(ctx context.Context, id, title string) (models.Book, error) {
	if id != "" {
		parsed, err := ksid.Parse(id)
		if err != nil {
			return models.Book{}, fmt.Errorf("invalid id %q: %w", id, err)
		}
		return s.store.Get(ctx, parsed)
	}
	if title == "" {
		return models.Book{}, errors.New("id or match_title is required")
	}
	b, ok := s.store.FindByTitle(ctx, title)
	if !ok {
		return models.Book{}, fmt.Errorf("title %q: %w", title, apperr.ErrNotFound)
	}
	return b, nil
}

func (s *Server) updateBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current, err := s.target(ctx, req.GetString("id", ""), req.GetString("match_title", ""))
	if err != nil {
		return errorResult(err), nil
	}

	year := req.GetFloat("year", float64(current.Year))
	if err := wholeYear(year); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repl := models.Book{
		Title:  req.GetString("title", current.Title),
		Author: req.GetString("author", current.Author),
		Year:   int(year),
		Genre:  req.GetString("genre", current.Genre),
		Read:   req.GetBool("read", current.Read),
	}
	updated, err := s.store.Update(ctx, current.ID, repl)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(updated), nil
}

func (s *Server) deleteBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := req.GetString("id", ""); id != "" {
		parsed, err := ksid.Parse(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid id %q", id)), nil
		}
		removed, err := s.store.Remove(ctx, parsed)
		if err != nil {
			return errorResult(err), nil
		}
		if !removed {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
	}

	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("id or title is required"), nil
	}
	n, err := s.store.RemoveByTitle(ctx, title)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %d book(s) titled %q", n, title)), nil
}

func (s *Server) libraryStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.store.Statistics(ctx).Report()), nil
}

func (s *Server) getBookFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BookFormatContract), nil
}

func (s *Server) readBookFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     BookFormatContract,
		},
	}, nil
}

func (s *Server) readBookSchemaResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(models.BookSchema(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "application/schema+json",
			Text:     string(out),
		},
	}, nil
}
