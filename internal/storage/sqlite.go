package storage

import (
	"database/sql"
	"fmt"

	"github.com/maruel/ksid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

const booksSchemaSQL = `
CREATE TABLE IF NOT EXISTS books (
	position INTEGER PRIMARY KEY,
	id       TEXT    NOT NULL DEFAULT '',
	title    TEXT    NOT NULL,
	author   TEXT    NOT NULL,
	year     INTEGER NOT NULL,
	genre    TEXT    NOT NULL,
	read     INTEGER NOT NULL DEFAULT 0
);
`

// SQLite implements Provider on a single SQLite table. Row order is kept in
// the position column; every Write rewrites the table in one transaction.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(booksSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Read returns every row ordered by position.
func (s *SQLite) Read() ([]models.Book, error) {
	rows, err := s.conn.Query(`SELECT id, title, author, year, genre, read FROM books ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("storage: query books: %w: %w", apperr.ErrStorageRead, err)
	}
	defer rows.Close()

	out := []models.Book{}
	for rows.Next() {
		var (
			b  models.Book
			id string
		)
		if err := rows.Scan(&id, &b.Title, &b.Author, &b.Year, &b.Genre, &b.Read); err != nil {
			return nil, fmt.Errorf("storage: scan book: %w: %w", apperr.ErrDecode, err)
		}
		if id != "" {
			if b.ID, err = ksid.Parse(id); err != nil {
				return nil, fmt.Errorf("storage: parse id %q: %w: %w", id, apperr.ErrDecode, err)
			}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate books: %w: %w", apperr.ErrStorageRead, err)
	}
	return out, nil
}

// Write replaces the table contents with books.
func (s *SQLite) Write(books []models.Book) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w: %w", apperr.ErrStorageWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM books`); err != nil {
		return fmt.Errorf("storage: clear books: %w: %w", apperr.ErrStorageWrite, err)
	}
	if len(books) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO books (position, id, title, author, year, genre, read) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage: prepare insert: %w: %w", apperr.ErrStorageWrite, err)
		}
		defer stmt.Close()
		for i, b := range books {
			id := ""
			if !b.ID.IsZero() {
				id = b.ID.String()
			}
			if _, err := stmt.Exec(i, id, b.Title, b.Author, b.Year, b.Genre, b.Read); err != nil {
				return fmt.Errorf("storage: insert book: %w: %w", apperr.ErrStorageWrite, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w: %w", apperr.ErrStorageWrite, err)
	}
	return nil
}
