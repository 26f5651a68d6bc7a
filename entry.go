package entrybook

import (
	"context"
	"strings"

	"github.com/arllen133/entrybook/clause"
	"github.com/arllen133/entrybook/field"
	"github.com/arllen133/entrybook/store"
)

// Entry is one stored record.
type Entry struct {
	ID    int64   `db:"id,primaryKey,autoIncrement"`
	Name  string  `db:"name"`
	Email string  `db:"email"`
	Age   *int    `db:"age"`
	Notes *string `db:"notes"`
}

// NotesText returns the notes, or "" when none are stored.
func (e Entry) NotesText() string {
	if e.Notes == nil {
		return ""
	}
	return *e.Notes
}

// BeforeCreate trims the text columns.
func (e *Entry) BeforeCreate(context.Context) error {
	e.trim()
	return nil
}

// BeforeUpdate trims the text columns.
func (e *Entry) BeforeUpdate(context.Context) error {
	e.trim()
	return nil
}

func (e *Entry) trim() {
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.TrimSpace(e.Email)
	if e.Notes != nil {
		notes := strings.TrimSpace(*e.Notes)
		e.Notes = &notes
	}
}

// Fields are the mutable columns of an entry. Create inserts them and
// Update replaces the stored row with them in full.
type Fields struct {
	Name  string
	Email string
	Age   *int
	Notes string
}

func (f Fields) entry(id int64) *Entry {
	notes := f.Notes
	return &Entry{
		ID:    id,
		Name:  f.Name,
		Email: f.Email,
		Age:   f.Age,
		Notes: &notes,
	}
}

const entriesTable = "entries"

// Entries holds typed references to the entries columns.
var Entries = struct {
	ID    field.Number[int64]
	Name  field.String
	Email field.String
	Age   field.Number[int]
	Notes field.String
}{
	ID:    field.NewNumber[int64]("", "id"),
	Name:  field.NewString("", "name"),
	Email: field.NewString("", "email"),
	Age:   field.NewNumber[int]("", "age"),
	Notes: field.NewString("", "notes"),
}

type entrySchema struct{}

func (entrySchema) TableName() string { return entriesTable }

func (entrySchema) SelectColumns() []string {
	return store.ResolveColumnNames([]clause.Columnar{
		Entries.ID, Entries.Name, Entries.Email, Entries.Age, Entries.Notes,
	})
}

func (entrySchema) InsertRow(e *Entry) ([]string, []any) {
	return []string{"name", "email", "age", "notes"},
		[]any{e.Name, e.Email, nullInt(e.Age), nullString(e.Notes)}
}

func (entrySchema) UpdateMap(e *Entry) map[string]any {
	return map[string]any{
		"name":  e.Name,
		"email": e.Email,
		"age":   nullInt(e.Age),
		"notes": nullString(e.Notes),
	}
}

func (entrySchema) PK(e *Entry) store.PK {
	var val any
	if e != nil {
		val = e.ID
	}
	return store.PK{Column: Entries.ID.Column(), Value: val}
}

func (entrySchema) SetPK(e *Entry, id int64) { e.ID = id }

func (entrySchema) AutoIncrement() bool { return true }

// Drivers differ in how they bind pointer arguments, so nil pointers are
// passed as untyped nil and the rest by value.
func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func init() {
	store.RegisterSchema[Entry](entrySchema{})
}
