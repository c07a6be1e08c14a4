package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/maruel/ksid"
	"github.com/urfave/cli/v3"

	"github.com/starford/shelf/internal"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/parser"
)

// openLibrary loads the configured library for a one-shot command. A
// corrupt store file is reported, never replaced.
func openLibrary(ctx context.Context, cmd *cli.Command) (*internal.Library, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewCLILogger(cfg.App.LogLevel)
	lib, err := internal.OpenLibrary(ctx, cfg.Library, logger, false)
	if err != nil {
		return nil, nil, err
	}
	return lib, logger, nil
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func printBooks(w io.Writer, books []models.Book) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tYEAR\tGENRE\tREAD")
	for _, b := range books {
		read := "no"
		if b.Read {
			read = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", b.ID, b.Title, b.Author, b.Year, b.Genre, read)
	}
	return tw.Flush()
}

func bookFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Book title", Required: required},
		&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author name", Required: required},
		&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Publication year (1800-2100)", Required: required},
		&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Genre label", Required: required},
		&cli.BoolFlag{Name: "read", Aliases: []string{"r"}, Usage: "Mark the book as read"},
	}
}

// overlay copies every flag the user set onto b.
func overlay(cmd *cli.Command, b models.Book) models.Book {
	if cmd.IsSet("title") {
		b.Title = cmd.String("title")
	}
	if cmd.IsSet("author") {
		b.Author = cmd.String("author")
	}
	if cmd.IsSet("year") {
		b.Year = int(cmd.Int("year"))
	}
	if cmd.IsSet("genre") {
		b.Genre = cmd.String("genre")
	}
	if cmd.IsSet("read") {
		b.Read = cmd.Bool("read")
	}
	return b
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a book",
		Flags: bookFlags(true),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, _, err := openLibrary(ctx, cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			added, err := lib.Store.Add(ctx, overlay(cmd, models.Book{}))
			if err != nil {
				return fmt.Errorf("add book: %w", err)
			}
			fmt.Fprintf(output(cmd), "Added %q (%s)\n", added.Title, added.ID)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all books in insertion order",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, _, err := openLibrary(ctx, cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			books := lib.Store.List(ctx)
			if len(books) == 0 {
				fmt.Fprintln(output(cmd), "No books.")
				return nil
			}
			return printBooks(output(cmd), books)
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find books whose title or author contains the term",
		ArgsUsage: "<term>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("search: exactly one term is required")
			}
			lib, _, err := openLibrary(ctx, cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			found := lib.Store.Search(ctx, cmd.Args().First())
			if len(found) == 0 {
				fmt.Fprintln(output(cmd), "No matches.")
				return nil
			}
			return printBooks(output(cmd), found)
		},
	}
}

func editCommand() *cli.Command {
	flags := append(bookFlags(false), &cli.StringFlag{
		Name:  "by-title",
		Usage: "Edit the first book with this exact title instead of an id",
	})
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change fields of a book; unset flags keep their value",
		ArgsUsage: "<id>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, _, err := openLibrary(ctx, cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			var updated models.Book
			if cmd.IsSet("by-title") {
				title := cmd.String("by-title")
				current, ok := lib.Store.FindByTitle(ctx, title)
				if !ok {
					return fmt.Errorf("edit: no book titled %q", title)
				}
				updated, err = lib.Store.UpdateByTitle(ctx, title, overlay(cmd, current))
			} else {
				id, perr := parseID(cmd)
				if perr != nil {
					return perr
				}
				current, gerr := lib.Store.Get(ctx, id)
				if gerr != nil {
					return fmt.Errorf("edit: %w", gerr)
				}
				updated, err = lib.Store.Update(ctx, id, overlay(cmd, current))
			}
			if err != nil {
				return fmt.Errorf("edit: %w", err)
			}
			fmt.Fprintf(output(cmd), "Updated %q (%s)\n", updated.Title, updated.ID)
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a book by id, or every book with --title",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Delete all books with this exact title"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, _, err := openLibrary(ctx, cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			if cmd.IsSet("title") {
				n, err := lib.Store.RemoveByTitle(ctx, cmd.String("title"))
				if err != nil {
					return fmt.Errorf("delete: %w", err)
				}
				fmt.Fprintf(output(cmd), "Deleted %d book(s)\n", n)
				return nil
			}

			id, err := parseID(cmd)
			if err != nil {
				return err
			}
			removed, err := lib.Store.Remove(ctx, id)
			if err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			if !removed {
				fmt.Fprintf(output(cmd), "No book with id %s\n", id)
				return nil
			}
			fmt.Fprintf(output(cmd), "Deleted %s\n", id)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show totals, read percentage and genre breakdown",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, _, err := openLibrary(ctx, cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			_, err = io.WriteString(output(cmd), lib.Store.Statistics(ctx).Report())
			return err
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import books from YAML/JSON lists or Markdown book cards",
		ArgsUsage: "<file or directory>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return errors.New("import: at least one path is required")
			}
			lib, logger, err := openLibrary(ctx, cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			var candidates []models.Book
			for _, p := range cmd.Args().Slice() {
				books, err := collect(p, logger)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				candidates = append(candidates, books...)
			}

			added, err := lib.Store.Import(ctx, candidates)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(output(cmd), "Imported %d book(s)\n", len(added))
			return nil
		},
	}
}

// collect parses path, or every supported file below it when it is a
// directory. Unsupported files inside a directory are skipped.
func collect(path string, logger *slog.Logger) ([]models.Book, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return parsePath(path)
	}

	var out []models.Book
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		books, err := parsePath(p)
		if errors.Is(err, parser.ErrUnsupported) {
			logger.Debug("skipping file", slog.String("path", p))
			return nil
		}
		if err != nil {
			return err
		}
		out = append(out, books...)
		return nil
	})
	return out, err
}

func parsePath(p string) ([]models.Book, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	books, err := parser.ParseFile(p, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return books, nil
}

func parseID(cmd *cli.Command) (ksid.ID, error) {
	if cmd.Args().Len() != 1 {
		var zero ksid.ID
		return zero, errors.New("exactly one book id is required")
	}
	raw := cmd.Args().First()
	id, err := ksid.Parse(raw)
	if err != nil {
		return id, fmt.Errorf("invalid id %s: %w", strconv.Quote(raw), err)
	}
	return id, nil
}
