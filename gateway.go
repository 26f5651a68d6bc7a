// Package entrybook persists simple contact records (name, email, age,
// notes) in a local SQLite file.
//
// Gateway is the only way in. It keeps no connection between calls: every
// operation opens the file, runs one statement in its own transaction and
// closes the file again, on every exit path.
//
//	gw := entrybook.New("data.db")
//	if err := gw.Initialize(ctx); err != nil {
//	    return err // errors.Is(err, entrybook.ErrStorageUnavailable)
//	}
//	id, err := gw.Create(ctx, entrybook.Fields{Name: "Alice", Email: "alice@x.com"})
package entrybook

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arllen133/entrybook/store"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaDDL string

const (
	defaultBusyTimeout  = 5 * time.Second
	instrumentationName = "github.com/arllen133/entrybook"
)

// Gateway is the storage gateway for entries. It is safe for concurrent
// use; concurrent writers are serialized only by SQLite's file lock.
type Gateway struct {
	path    string
	dialect store.Dialect
	busy    time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
	session []store.SessionOption
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithDialect selects the SQLite driver. The default is store.SQLite.
func WithDialect(d store.Dialect) Option {
	return func(g *Gateway) {
		if d != nil {
			g.dialect = d
		}
	}
}

// WithBusyTimeout sets how long a call waits on a locked file.
func WithBusyTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.busy = d
	}
}

// WithLogger sets the logger for gateway calls and their statements.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithTracer traces every call and the statements it runs.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		if tracer == nil {
			return
		}
		g.tracer = tracer
		g.session = append(g.session, store.WithTracer(tracer))
	}
}

// WithMeter records statement metrics on meter.
func WithMeter(meter metric.Meter) Option {
	return func(g *Gateway) {
		g.session = append(g.session, store.WithMeter(meter))
	}
}

// WithGlobalTelemetry traces and measures through the globally registered
// OpenTelemetry providers.
func WithGlobalTelemetry() Option {
	return func(g *Gateway) {
		g.tracer = otel.Tracer(instrumentationName)
		g.session = append(g.session, store.WithDefaultTracer(), store.WithDefaultMeter())
	}
}

// WithSlowQueryThreshold sets when a statement is logged as slow.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(g *Gateway) {
		g.session = append(g.session, store.WithSlowQueryThreshold(d))
	}
}

// WithQueryLogging logs every statement at debug level.
func WithQueryLogging(enabled bool) Option {
	return func(g *Gateway) {
		g.session = append(g.session, store.WithQueryLogging(enabled))
	}
}

// New returns a gateway for the SQLite file at path. Nothing is opened
// until the first call.
func New(path string, opts ...Option) *Gateway {
	g := &Gateway{
		path:    path,
		dialect: store.SQLite,
		busy:    defaultBusyTimeout,
		tracer:  noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path returns the store file the gateway writes to.
func (g *Gateway) Path() string { return g.path }

// Initialize creates the entries table when it does not exist yet. It is
// safe to call on every start.
func (g *Gateway) Initialize(ctx context.Context) error {
	err := g.scope(ctx, "initialize", func(ctx context.Context, tx *store.Session) error {
		_, err := tx.Exec(ctx, schemaDDL)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: initialize %s: %w", ErrStorageUnavailable, g.path, err)
	}
	return nil
}

// Create inserts a new entry and returns its id. Text fields are trimmed;
// presence of name and email is the caller's concern.
func (g *Gateway) Create(ctx context.Context, f Fields) (int64, error) {
	var id int64
	err := g.scope(ctx, "create", func(ctx context.Context, tx *store.Session) error {
		e := f.entry(0)
		if err := store.NewRepository[Entry](tx).Create(ctx, e); err != nil {
			return err
		}
		id = e.ID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create entry: %w", ErrStorageWrite, err)
	}
	return id, nil
}

// ListAll returns every entry, newest id first. An empty store yields an
// empty slice.
func (g *Gateway) ListAll(ctx context.Context) ([]Entry, error) {
	var rows []*Entry
	err := g.scope(ctx, "list_all", func(ctx context.Context, tx *store.Session) error {
		var err error
		rows, err = store.NewRepository[Entry](tx).Query().
			OrderBy(Entries.ID.Desc()).
			Find(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %w", ErrStorageUnavailable, err)
	}

	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = *row
	}
	return entries, nil
}

// Get returns the entry with id. ok is false when no such entry exists,
// which is not an error: it may have been deleted since it was listed.
func (g *Gateway) Get(ctx context.Context, id int64) (entry Entry, ok bool, err error) {
	err = g.scope(ctx, "get", func(ctx context.Context, tx *store.Session) error {
		row, err := store.NewRepository[Entry](tx).FindOne(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		entry, ok = *row, true
		return nil
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: get entry %d: %w", ErrStorageUnavailable, id, err)
	}
	return entry, ok, nil
}

// Update replaces every mutable field of entry id. It reports false when
// the entry no longer exists, in which case nothing was written.
func (g *Gateway) Update(ctx context.Context, id int64, f Fields) (bool, error) {
	var affected int64
	err := g.scope(ctx, "update", func(ctx context.Context, tx *store.Session) error {
		var err error
		affected, err = store.NewRepository[Entry](tx).Update(ctx, f.entry(id))
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: update entry %d: %w", ErrStorageWrite, id, err)
	}
	return affected > 0, nil
}

// Delete removes entry id and reports whether it existed.
func (g *Gateway) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64
	err := g.scope(ctx, "delete", func(ctx context.Context, tx *store.Session) error {
		var err error
		affected, err = store.NewRepository[Entry](tx).Delete(ctx, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: delete entry %d: %w", ErrStorageWrite, id, err)
	}
	return affected > 0, nil
}

// Count returns the number of stored entries.
func (g *Gateway) Count(ctx context.Context) (int64, error) {
	var n int64
	err := g.scope(ctx, "count", func(ctx context.Context, tx *store.Session) error {
		var err error
		n, err = store.NewRepository[Entry](tx).Query().Count(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count entries: %w", ErrStorageUnavailable, err)
	}
	return n, nil
}

// scope is the per-call connection scope: open, run fn in a transaction,
// close. The file is closed even when fn fails or panics.
func (g *Gateway) scope(ctx context.Context, op string, fn func(context.Context, *store.Session) error) (err error) {
	callID := uuid.NewString()
	ctx, span := g.tracer.Start(ctx, "entrybook."+op,
		trace.WithAttributes(
			attribute.String("entrybook.call_id", callID),
			attribute.String("entrybook.path", g.path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	opts := g.session
	var logger *slog.Logger
	if g.logger != nil {
		logger = g.logger.With(slog.String("op", op), slog.String("call_id", callID))
		opts = append(opts[:len(opts):len(opts)], store.WithLogger(logger))
	}

	session, err := store.Open(ctx, g.dialect, g.path, g.busy, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			if logger != nil {
				logger.LogAttrs(ctx, slog.LevelWarn, "close store", slog.String("error", cerr.Error()))
			}
			if err == nil {
				err = cerr
			}
		}
	}()

	return session.Transaction(ctx, func(tx *store.Session) error {
		return fn(ctx, tx)
	})
}
