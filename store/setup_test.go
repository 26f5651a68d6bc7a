package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/arllen133/entrybook/clause"
	"github.com/arllen133/entrybook/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const notesDDL = `CREATE TABLE IF NOT EXISTS notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	rank INTEGER
)`

type Note struct {
	ID    int64  `db:"id,primaryKey,autoIncrement"`
	Title string `db:"title"`
	Rank  *int   `db:"rank"`
}

type noteSchema struct{}

func (noteSchema) TableName() string       { return "notes" }
func (noteSchema) SelectColumns() []string { return []string{"id", "title", "rank"} }
func (noteSchema) InsertRow(m *Note) ([]string, []any) {
	return []string{"title", "rank"}, []any{m.Title, rankArg(m.Rank)}
}
func (noteSchema) UpdateMap(m *Note) map[string]any {
	return map[string]any{"title": m.Title, "rank": rankArg(m.Rank)}
}
func (noteSchema) PK(m *Note) store.PK {
	var val any
	if m != nil {
		val = m.ID
	}
	return store.PK{Column: clause.Column{Name: "id"}, Value: val}
}
func (noteSchema) SetPK(m *Note, val int64) { m.ID = val }
func (noteSchema) AutoIncrement() bool      { return true }

// HookedNote shares the notes table and records its lifecycle callbacks.
type HookedNote struct {
	ID    int64  `db:"id,primaryKey,autoIncrement"`
	Title string `db:"title"`

	events []string
	fail   string
}

var errHook = errors.New("hook refused")

func (n *HookedNote) record(event string) error {
	n.events = append(n.events, event)
	if n.fail == event {
		return errHook
	}
	return nil
}

func (n *HookedNote) BeforeCreate(context.Context) error { return n.record("before_create") }
func (n *HookedNote) AfterCreate(context.Context) error  { return n.record("after_create") }
func (n *HookedNote) BeforeUpdate(context.Context) error { return n.record("before_update") }
func (n *HookedNote) AfterUpdate(context.Context) error  { return n.record("after_update") }
func (n *HookedNote) BeforeDelete(context.Context) error { return n.record("before_delete") }
func (n *HookedNote) AfterDelete(context.Context) error  { return n.record("after_delete") }

type hookedNoteSchema struct{}

func (hookedNoteSchema) TableName() string       { return "notes" }
func (hookedNoteSchema) SelectColumns() []string { return []string{"id", "title"} }
func (hookedNoteSchema) InsertRow(m *HookedNote) ([]string, []any) {
	return []string{"title"}, []any{m.Title}
}
func (hookedNoteSchema) UpdateMap(m *HookedNote) map[string]any {
	return map[string]any{"title": m.Title}
}
func (hookedNoteSchema) PK(m *HookedNote) store.PK {
	var val any
	if m != nil {
		val = m.ID
	}
	return store.PK{Column: clause.Column{Name: "id"}, Value: val}
}
func (hookedNoteSchema) SetPK(m *HookedNote, val int64) { m.ID = val }
func (hookedNoteSchema) AutoIncrement() bool            { return true }

func init() {
	store.RegisterSchema[Note](noteSchema{})
	store.RegisterSchema[HookedNote](hookedNoteSchema{})
}

var dialects = []store.Dialect{store.SQLite, store.ModernSQLite}

func setupSession(t *testing.T, dialect store.Dialect, opts ...store.SessionOption) *store.Session {
	t.Helper()

	path := filepath.Join(t.TempDir(), "notes.db")
	session, err := store.Open(context.Background(), dialect, path, time.Second, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	_, err = session.Exec(context.Background(), notesDDL)
	require.NoError(t, err)
	return session
}

func intPtr(v int) *int { return &v }

func rankArg(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}
