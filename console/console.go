// Package console is the interactive front end for an entry store.
// Storage errors are reported and the loop carries on.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/arllen133/entrybook"
)

const (
	defaultAge = 18
	minAge     = 0
	maxAge     = 150

	// clearValue empties an optional field in the edit form.
	clearValue = "-"

	maxLineSize = 1 << 20
)

const (
	msgRequired       = "Name and Email are required."
	msgNoRecords      = "No records found."
	msgNotFound       = "Selected record not found."
	msgUpdateFailed   = "Failed to update record. It may have been removed."
	msgDeleteFailed   = "Failed to delete. It might already be removed."
	msgDeleteCanceled = "Delete cancelled."
)

var msgAgeRange = fmt.Sprintf("Age must be a whole number between %d and %d.", minAge, maxAge)

// Store is the part of entrybook.Gateway the console uses.
type Store interface {
	Create(ctx context.Context, f entrybook.Fields) (int64, error)
	ListAll(ctx context.Context) ([]entrybook.Entry, error)
	Get(ctx context.Context, id int64) (entrybook.Entry, bool, error)
	Update(ctx context.Context, id int64, f entrybook.Fields) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Console runs the command loop.
type Console struct {
	store  Store
	in     *bufio.Scanner
	out    io.Writer
	logger *slog.Logger
	prompt string
}

// Option configures a Console.
type Option func(*Console)

// WithLogger logs storage errors in addition to printing them.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// WithPrompt replaces the command prompt.
func WithPrompt(prompt string) Option {
	return func(c *Console) {
		c.prompt = prompt
	}
}

func New(store Store, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		store:  store,
		in:     bufio.NewScanner(in),
		out:    out,
		prompt: "entrybook> ",
	}
	c.in.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reads commands until quit, end of input or ctx is done. It returns
// nil on quit and end of input.
func (c *Console) Run(ctx context.Context) error {
	c.printf("Entry records. Type 'help' for commands.\n")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok := c.readLine(c.prompt)
		if !ok {
			c.printf("\n")
			return c.in.Err()
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch cmd := strings.ToLower(args[0]); cmd {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			c.help()
		case "add":
			c.add(ctx)
		case "list", "ls":
			c.list(ctx)
		case "show", "edit", "delete", "rm":
			id, ok := c.parseID(cmd, args[1:])
			if !ok {
				continue
			}
			switch cmd {
			case "show":
				c.show(ctx, id)
			case "edit":
				c.edit(ctx, id)
			default:
				c.remove(ctx, id)
			}
		default:
			c.printf("Unknown command %q. Type 'help' for commands.\n", args[0])
		}
	}
}

func (c *Console) help() {
	c.printf(`Commands:
  add          add a new entry
  list         list all entries, newest first
  show <id>    show one entry
  edit <id>    edit an entry (blank input keeps the current value,
               "-" clears the notes)
  delete <id>  delete an entry after confirmation
  help         show this help
  quit         leave
`)
}

func (c *Console) add(ctx context.Context) {
	f, ok := c.form(nil)
	if !ok {
		return
	}
	id, err := c.store.Create(ctx, f)
	if err != nil {
		c.storageError(ctx, "create", err)
		return
	}
	c.printf("Entry added with id %d\n", id)
}

func (c *Console) list(ctx context.Context) {
	entries, err := c.store.ListAll(ctx)
	if err != nil {
		c.storageError(ctx, "list", err)
		return
	}
	if len(entries) == 0 {
		c.printf("%s\n", msgNoRecords)
		return
	}

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tAGE\tNOTES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Email, formatAge(e.Age), firstLine(e.NotesText()))
	}
	_ = tw.Flush()
}

func (c *Console) show(ctx context.Context, id int64) {
	e, ok := c.lookup(ctx, id)
	if !ok {
		return
	}
	c.printf("ID:     %d\nName:   %s\nEmail:  %s\nAge:    %s\nNotes:  %s\n",
		e.ID, e.Name, e.Email, formatAge(e.Age), e.NotesText())
}

func (c *Console) edit(ctx context.Context, id int64) {
	current, ok := c.lookup(ctx, id)
	if !ok {
		return
	}
	f, ok := c.form(&current)
	if !ok {
		return
	}
	updated, err := c.store.Update(ctx, id, f)
	if err != nil {
		c.storageError(ctx, "update", err)
		return
	}
	if !updated {
		c.printf("%s\n", msgUpdateFailed)
		return
	}
	c.printf("Record updated successfully.\n")
}

func (c *Console) remove(ctx context.Context, id int64) {
	e, ok := c.lookup(ctx, id)
	if !ok {
		return
	}
	answer, ok := c.readLine(fmt.Sprintf("Delete %d - %s (%s)? [y/N]: ", e.ID, e.Name, e.Email))
	if !ok {
		return
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
	default:
		c.printf("%s\n", msgDeleteCanceled)
		return
	}

	deleted, err := c.store.Delete(ctx, id)
	if err != nil {
		c.storageError(ctx, "delete", err)
		return
	}
	if !deleted {
		c.printf("%s\n", msgDeleteFailed)
		return
	}
	c.printf("Record deleted successfully\n")
}

// lookup fetches id and prints the outcome when there is nothing to show.
func (c *Console) lookup(ctx context.Context, id int64) (entrybook.Entry, bool) {
	e, found, err := c.store.Get(ctx, id)
	if err != nil {
		c.storageError(ctx, "get", err)
		return entrybook.Entry{}, false
	}
	if !found {
		c.printf("%s\n", msgNotFound)
		return entrybook.Entry{}, false
	}
	return e, true
}

// form reads the entry fields. With a current entry, blank input keeps the
// current value and clearValue empties the notes.
func (c *Console) form(current *entrybook.Entry) (entrybook.Fields, bool) {
	var f entrybook.Fields
	age := defaultAge
	if current != nil {
		f = entrybook.Fields{Name: current.Name, Email: current.Email, Notes: current.NotesText()}
		if current.Age != nil {
			age = *current.Age
		}
	}

	var ok bool
	if f.Name, ok = c.field("Name", f.Name); !ok {
		return entrybook.Fields{}, false
	}
	if f.Email, ok = c.field("Email", f.Email); !ok {
		return entrybook.Fields{}, false
	}
	rawAge, ok := c.field("Age", strconv.Itoa(age))
	if !ok {
		return entrybook.Fields{}, false
	}
	notesLabel := "Notes"
	if current != nil {
		notesLabel = "Notes (- to clear)"
	}
	if f.Notes, ok = c.field(notesLabel, f.Notes); !ok {
		return entrybook.Fields{}, false
	}
	if current != nil && f.Notes == clearValue {
		f.Notes = ""
	}

	if f.Name == "" || f.Email == "" {
		c.printf("%s\n", msgRequired)
		return entrybook.Fields{}, false
	}
	n, ok := parseAge(rawAge)
	if !ok {
		c.printf("%s\n", msgAgeRange)
		return entrybook.Fields{}, false
	}
	f.Age = &n
	return f, true
}

// field prompts for one value and returns it trimmed, or def when blank.
func (c *Console) field(label, def string) (string, bool) {
	prompt := label + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, def)
	}
	v, ok := c.readLine(prompt)
	if !ok {
		return "", false
	}
	if v = strings.TrimSpace(v); v == "" {
		return def, true
	}
	return v, true
}

func (c *Console) readLine(prompt string) (string, bool) {
	c.printf("%s", prompt)
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

func (c *Console) parseID(cmd string, args []string) (int64, bool) {
	if len(args) != 1 {
		c.printf("Usage: %s <id>\n", cmd)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		c.printf("Invalid id %q.\n", args[0])
		return 0, false
	}
	return id, true
}

func (c *Console) storageError(ctx context.Context, op string, err error) {
	if c.logger != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "storage call failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
	c.printf("Storage error: %v, please retry.\n", err)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func parseAge(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < minAge || n > maxAge {
		return 0, false
	}
	return n, true
}

func formatAge(age *int) string {
	if age == nil {
		return "-"
	}
	return strconv.Itoa(*age)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
