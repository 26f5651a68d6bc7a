package entrybook_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arllen133/entrybook"
	"github.com/arllen133/entrybook/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupGateway(t *testing.T, opts ...entrybook.Option) *entrybook.Gateway {
	t.Helper()

	gw := entrybook.New(filepath.Join(t.TempDir(), "data.db"), opts...)
	require.NoError(t, gw.Initialize(context.Background()))
	return gw
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestScenario(t *testing.T) {
	for _, dialect := range dialects {
		t.Run(dialect.Name(), func(t *testing.T) {
			gw := setupGateway(t, entrybook.WithDialect(dialect))
			ctx := context.Background()

			id, err := gw.Create(ctx, entrybook.Fields{Name: "Alice", Email: "alice@x.com", Age: intPtr(30), Notes: "vip"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), id)

			got, ok, err := gw.Get(ctx, 1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, entrybook.Entry{ID: 1, Name: "Alice", Email: "alice@x.com", Age: intPtr(30), Notes: strPtr("vip")}, got)

			updated, err := gw.Update(ctx, 1, entrybook.Fields{Name: "Alice B", Email: "alice@x.com", Age: intPtr(31), Notes: "vip"})
			require.NoError(t, err)
			assert.True(t, updated)

			got, ok, err = gw.Get(ctx, 1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Alice B", got.Name)
			require.NotNil(t, got.Age)
			assert.Equal(t, 31, *got.Age)

			deleted, err := gw.Delete(ctx, 1)
			require.NoError(t, err)
			assert.True(t, deleted)

			_, ok, err = gw.Get(ctx, 1)
			require.NoError(t, err)
			assert.False(t, ok)

			deleted, err = gw.Delete(ctx, 1)
			require.NoError(t, err)
			assert.False(t, deleted)
		})
	}
}

func TestListAllOrdering(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	entries, err := gw.ListAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	for _, name := range []string{"one", "two", "three"} {
		_, err := gw.Create(ctx, entrybook.Fields{Name: name, Email: name + "@x.com"})
		require.NoError(t, err)
	}

	entries, err = gw.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(t, "three", entries[0].Name)

	n, err := gw.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestOptionalFields(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	id, err := gw.Create(ctx, entrybook.Fields{Name: "Bob", Email: "bob@x.com"})
	require.NoError(t, err)

	got, ok, err := gw.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.Age)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "", got.NotesText())

	assert.Equal(t, "", entrybook.Entry{}.NotesText(), "a NULL notes column reads as empty")
}

func TestUpdateIsFullReplace(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	id, err := gw.Create(ctx, entrybook.Fields{Name: "Carol", Email: "carol@x.com", Age: intPtr(40), Notes: "old"})
	require.NoError(t, err)

	ok, err := gw.Update(ctx, id, entrybook.Fields{Name: "Carol", Email: "c@x.com"})
	require.NoError(t, err)
	require.True(t, ok)

	got, _, err := gw.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "c@x.com", got.Email)
	assert.Nil(t, got.Age, "omitted age clears the stored one")
	assert.Equal(t, "", got.NotesText())
}

func TestUpdateMissing(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	ok, err := gw.Update(ctx, 99, entrybook.Fields{Name: "Nobody", Email: "n@x.com"})
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := gw.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIDsNotReused(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	first, err := gw.Create(ctx, entrybook.Fields{Name: "a", Email: "a@x.com"})
	require.NoError(t, err)
	_, err = gw.Delete(ctx, first)
	require.NoError(t, err)

	second, err := gw.Create(ctx, entrybook.Fields{Name: "b", Email: "b@x.com"})
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestGatewayAcceptsEmptyStrings(t *testing.T) {
	gw := setupGateway(t)

	id, err := gw.Create(context.Background(), entrybook.Fields{})
	require.NoError(t, err, "presence checks belong to the caller")
	assert.Positive(t, id)
}

func TestInitializeIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	ctx := context.Background()

	gw := entrybook.New(path)
	require.NoError(t, gw.Initialize(ctx))
	_, err := gw.Create(ctx, entrybook.Fields{Name: "kept", Email: "k@x.com"})
	require.NoError(t, err)

	require.NoError(t, entrybook.New(path).Initialize(ctx))

	n, err := gw.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = os.Stat(path)
	assert.NoError(t, err, "the store file is created on first run")
}

func TestStorageUnavailable(t *testing.T) {
	gw := entrybook.New(filepath.Join(t.TempDir(), "no", "such", "dir", "data.db"))
	ctx := context.Background()

	err := gw.Initialize(ctx)
	assert.ErrorIs(t, err, entrybook.ErrStorageUnavailable)

	_, err = gw.ListAll(ctx)
	assert.ErrorIs(t, err, entrybook.ErrStorageUnavailable)

	_, _, err = gw.Get(ctx, 1)
	assert.ErrorIs(t, err, entrybook.ErrStorageUnavailable)

	_, err = gw.Create(ctx, entrybook.Fields{Name: "x", Email: "y"})
	assert.ErrorIs(t, err, entrybook.ErrStorageWrite)

	_, err = gw.Update(ctx, 1, entrybook.Fields{Name: "x", Email: "y"})
	assert.ErrorIs(t, err, entrybook.ErrStorageWrite)

	_, err = gw.Delete(ctx, 1)
	assert.ErrorIs(t, err, entrybook.ErrStorageWrite)
}

func TestWriteWithoutSchema(t *testing.T) {
	gw := entrybook.New(filepath.Join(t.TempDir(), "data.db"))

	_, err := gw.Create(context.Background(), entrybook.Fields{Name: "x", Email: "y"})
	assert.ErrorIs(t, err, entrybook.ErrStorageWrite)
	assert.NotErrorIs(t, err, entrybook.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "no such table")
}

func TestGatewayObservability(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	gw := setupGateway(t,
		entrybook.WithLogger(logger),
		entrybook.WithQueryLogging(true),
		entrybook.WithTracer(provider.Tracer("test")),
	)
	_, err := gw.Create(context.Background(), entrybook.Fields{Name: "Dana", Email: "d@x.com"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "op=create")
	assert.Contains(t, out, "call_id=")
	assert.Contains(t, out, "INSERT INTO entries")

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "entrybook.initialize")
	assert.Contains(t, names, "entrybook.create")
	assert.Contains(t, names, "store.exec")
}

var dialects = []store.Dialect{store.SQLite, store.ModernSQLite}

func TestTextFieldsAreTrimmed(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	id, err := gw.Create(ctx, entrybook.Fields{Name: "  Erin ", Email: " erin@x.com\t", Notes: "  quiet  "})
	require.NoError(t, err)

	got, _, err := gw.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Erin", got.Name)
	assert.Equal(t, "erin@x.com", got.Email)
	assert.Equal(t, "quiet", got.NotesText())

	ok, err := gw.Update(ctx, id, entrybook.Fields{Name: " Erin B ", Email: "erin@x.com", Notes: " loud "})
	require.NoError(t, err)
	require.True(t, ok)

	got, _, err = gw.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Erin B", got.Name)
	assert.Equal(t, "loud", got.NotesText())
}

func TestConcurrentGateways(t *testing.T) {
	const callers = 40

	for _, dialect := range dialects {
		t.Run(dialect.Name(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.db")
			ctx := context.Background()
			opts := []entrybook.Option{entrybook.WithDialect(dialect), entrybook.WithBusyTimeout(10 * time.Second)}
			require.NoError(t, entrybook.New(path, opts...).Initialize(ctx))

			var wg sync.WaitGroup
			errs := make(chan error, callers)
			for i := range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					// Each caller has its own gateway and so its own connection scope.
					gw := entrybook.New(path, opts...)
					_, err := gw.Create(ctx, entrybook.Fields{Name: fmt.Sprintf("caller %d", i), Email: "c@x.com"})
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				assert.NoError(t, err)
			}

			n, err := entrybook.New(path, opts...).Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(callers), n)
		})
	}
}

func TestGlobalTelemetry(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
	})

	gw := setupGateway(t, entrybook.WithGlobalTelemetry())
	_, err := gw.Create(ctx, entrybook.Fields{Name: "Gil", Email: "g@x.com"})
	require.NoError(t, err)

	gatewaySpans := map[string]bool{}
	for _, span := range recorder.Ended() {
		if span.Name() == "entrybook.initialize" || span.Name() == "entrybook.create" {
			gatewaySpans[span.SpanContext().SpanID().String()] = true
		}
	}
	require.Len(t, gatewaySpans, 2)

	var commits int
	for _, span := range recorder.Ended() {
		if span.Name() != "store.commit" {
			continue
		}
		commits++
		assert.True(t, gatewaySpans[span.Parent().SpanID().String()], "commit is reported under its gateway call")
	}
	assert.Equal(t, 2, commits)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var queries int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "entrybook.store.query.count" {
				for _, dp := range sum.DataPoints {
					queries += dp.Value
				}
			}
		}
	}
	assert.Positive(t, queries)
}
