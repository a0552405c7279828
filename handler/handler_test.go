package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/orgoj/mongolog/formatter"
	"github.com/orgoj/mongolog/internal/logger"
	"github.com/orgoj/mongolog/internal/metrics"
	"github.com/orgoj/mongolog/record"
	"github.com/orgoj/mongolog/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// memCollection encodes documents the way the MongoDB collection does and keeps
// the BSON in memory.
type memCollection struct {
	mu   sync.Mutex
	docs []bson.Raw
}

func (c *memCollection) Insert(_ context.Context, doc formatter.Document) error {
	raw, err := store.Encode(doc)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, raw)
	return nil
}

func (c *memCollection) all() []bson.Raw {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bson.Raw, len(c.docs))
	copy(out, c.docs)
	return out
}

// where returns the documents whose string field at path equals value.
func (c *memCollection) where(value string, path ...string) []bson.Raw {
	var out []bson.Raw
	for _, raw := range c.all() {
		if s, ok := raw.Lookup(path...).StringValueOK(); ok && s == value {
			out = append(out, raw)
		}
	}
	return out
}

// errCollection fails every insert with err.
type errCollection struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (c *errCollection) Insert(_ context.Context, _ formatter.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *errCollection) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// deadlineCollection records whether inserts ran with a deadline.
type deadlineCollection struct {
	hasDeadline bool
}

func (c *deadlineCollection) Insert(ctx context.Context, _ formatter.Document) error {
	_, c.hasDeadline = ctx.Deadline()
	return nil
}

type report struct {
	rec *record.Record
	err error
}

type mockReporter struct {
	mu      sync.Mutex
	reports []report
}

func (r *mockReporter) ReportRejected(_ context.Context, rec *record.Record, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{rec: rec, err: err})
}

func (r *mockReporter) Reports() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report(nil), r.reports...)
}

func newTestHandler(t *testing.T, coll store.Collection, opts Options) *StoreHandler {
	t.Helper()
	if opts.Fallback == nil {
		opts.Fallback = &bytes.Buffer{}
	}
	if opts.Reporter == nil {
		opts.Reporter = &mockReporter{}
	}
	h, err := New(coll, opts)
	require.NoError(t, err)
	return h
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		coll    store.Collection
		opts    Options
		wantErr string
	}{
		{"Defaults", &memCollection{}, Options{}, ""},
		{"Nil collection", nil, Options{}, "collection is required"},
		{"Bad template", &memCollection{}, Options{Template: "%(message"}, "invalid template"},
		{"Bad filter", &memCollection{}, Options{Filters: []string{"app.[a"}}, "invalid filter pattern 'app.[a'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(tt.coll, tt.opts)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultLoggerName, h.Name())
			assert.Equal(t, record.NOTSET, h.Level())
			assert.NotNil(t, h.Formatter())
			assert.NoError(t, h.Close(context.Background()))
		})
	}
}

func TestNew_BadTemplateIsBadTemplateError(t *testing.T) {
	_, err := New(&memCollection{}, Options{Template: "%(message"})
	assert.ErrorIs(t, err, formatter.ErrBadTemplate)
}

func TestEmit_StoresDocument(t *testing.T) {
	coll := &memCollection{}
	h := newTestHandler(t, coll, Options{})

	rec := record.New("app", record.INFO, record.Text("%s within a message", "message"))
	require.NoError(t, h.Emit(context.Background(), rec))

	docs := coll.all()
	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, "message within a message", doc.Lookup(formatter.FieldMessage).StringValue())
	assert.Equal(t, "%s within a message", doc.Lookup(formatter.FieldMsg).StringValue())
	assert.Equal(t, "app", doc.Lookup(formatter.FieldName).StringValue())
	assert.Equal(t, "INFO", doc.Lookup(formatter.FieldLevelName).StringValue())
	assert.Equal(t, int64(record.INFO), doc.Lookup(formatter.FieldLevelNo).AsInt64())
	for _, field := range []string{formatter.FieldUsername, formatter.FieldHost} {
		_, ok := doc.Lookup(field).StringValueOK()
		assert.True(t, ok, "field %s should be a string", field)
	}
	_, ok := doc.Lookup(formatter.FieldTime).TimeOK()
	assert.True(t, ok, "time should be a date")
}

func TestEmit_QueryByStructuredField(t *testing.T) {
	coll := &memCollection{}
	h := newTestHandler(t, coll, Options{})
	ctx := context.Background()

	states := []string{"PA", "NY", "PA", "CA"}
	for i, state := range states {
		msg := record.FromMap(map[string]any{
			"address": fmt.Sprintf("%d Main St", i),
			"state":   state,
		})
		require.NoError(t, h.Emit(ctx, record.New("app", record.INFO, msg)))
	}
	// a plain text record whose message happens to read "PA" must not match
	require.NoError(t, h.Emit(ctx, record.New("app", record.INFO, record.Text("PA"))))

	pa := coll.where("PA", formatter.FieldMessage, "state")
	require.Len(t, pa, 2)
	assert.Equal(t, "0 Main St", pa[0].Lookup(formatter.FieldMessage, "address").StringValue())
	assert.Equal(t, "2 Main St", pa[1].Lookup(formatter.FieldMessage, "address").StringValue())

	assert.Len(t, coll.where("NY", formatter.FieldMsg, "state"), 1)
	assert.Empty(t, coll.where("TX", formatter.FieldMessage, "state"))
}

func TestEmit_LevelThreshold(t *testing.T) {
	coll := &memCollection{}
	h := newTestHandler(t, coll, Options{Level: record.WARN})
	ctx := context.Background()

	require.NoError(t, h.Emit(ctx, record.New("app", record.INFO, record.Text("dropped"))))
	require.NoError(t, h.Emit(ctx, record.New("app", record.WARN, record.Text("kept"))))
	assert.Len(t, coll.all(), 1)

	h.SetLevel(record.DEBUG)
	assert.Equal(t, record.DEBUG, h.Level())
	require.NoError(t, h.Emit(ctx, record.New("app", record.DEBUG, record.Text("now kept"))))
	require.NoError(t, h.Emit(ctx, record.New("app", record.TRACE, record.Text("still dropped"))))

	docs := coll.all()
	require.Len(t, docs, 2)
	assert.Equal(t, "now kept", docs[1].Lookup(formatter.FieldMessage).StringValue())
}

func TestEmit_Filters(t *testing.T) {
	coll := &memCollection{}
	reg := prometheus.NewRegistry()
	h := newTestHandler(t, coll, Options{
		Filters:    []string{"app.*", "audit"},
		Registerer: reg,
	})
	ctx := context.Background()

	for _, name := range []string{"app.db", "app.db.pool", "audit", "other", "app"} {
		require.NoError(t, h.Emit(ctx, record.New(name, record.INFO, record.Text("x"))))
	}

	docs := coll.all()
	require.Len(t, docs, 2)
	assert.Equal(t, "app.db", docs[0].Lookup(formatter.FieldName).StringValue())
	assert.Equal(t, "audit", docs[1].Lookup(formatter.FieldName).StringValue())

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Records.WithLabelValues(metrics.OutcomeStored)))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.Records.WithLabelValues(metrics.OutcomeFiltered)))
}

func TestEmit_RejectedDocumentIsReported(t *testing.T) {
	coll := &memCollection{}
	reporter := &mockReporter{}
	fallback := &bytes.Buffer{}
	h := newTestHandler(t, coll, Options{
		Reporter:   reporter,
		Fallback:   fallback,
		Registerer: prometheus.NewRegistry(),
	})

	rec := record.New("app", record.INFO, record.Text("%v", make(chan int)))
	err := h.Emit(context.Background(), rec)

	assert.NoError(t, err, "rejection must not propagate")
	assert.Empty(t, coll.all())
	reports := reporter.Reports()
	require.Len(t, reports, 1)
	assert.Same(t, rec, reports[0].rec)
	assert.True(t, store.IsRejected(reports[0].err))
	assert.Empty(t, fallback.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Records.WithLabelValues(metrics.OutcomeRejected)))
}

func TestEmit_RejectedDocumentWithAppLogReporter(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandler(t, &memCollection{}, Options{
		Reporter: logger.NewReporter(logger.NewAppLogger(&buf, record.WARN), 0),
	})

	rec := record.New("app", record.INFO, record.Text("%v", make(chan int)))
	require.NoError(t, h.Emit(context.Background(), rec))

	out := buf.String()
	assert.Contains(t, out, "ERROR: Unable to save log record: ")
	assert.Contains(t, out, store.ErrRejected.Error())
	assert.Contains(t, out, "goroutine ")
}

func TestEmit_UnexpectedErrorGoesToFallback(t *testing.T) {
	connErr := errors.New("connection refused")
	coll := &errCollection{err: connErr}
	reporter := &mockReporter{}
	fallback := &bytes.Buffer{}
	h := newTestHandler(t, coll, Options{
		Reporter:   reporter,
		Fallback:   fallback,
		Registerer: prometheus.NewRegistry(),
	})

	err := h.Emit(context.Background(), record.New("app", record.ERROR, record.Text("boom")))

	assert.ErrorIs(t, err, connErr)
	assert.Equal(t, 1, coll.Calls(), "one write attempt per record")
	assert.Empty(t, reporter.Reports())
	out := fallback.String()
	assert.True(t, strings.HasPrefix(out, "--- Logging error ---\n"))
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "Record: app ERROR boom")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Records.WithLabelValues(metrics.OutcomeFailed)))
}

func TestEmit_ServerRejectionIsReported(t *testing.T) {
	coll := &errCollection{err: fmt.Errorf("%w: BSONObjectTooLarge", store.ErrRejected)}
	reporter := &mockReporter{}
	h := newTestHandler(t, coll, Options{Reporter: reporter})

	require.NoError(t, h.Emit(context.Background(), record.New("app", record.INFO, record.Text("big"))))
	assert.Len(t, reporter.Reports(), 1)
}

func TestEmit_Template(t *testing.T) {
	coll := &memCollection{}
	h := newTestHandler(t, coll, Options{Template: "%(message)s from %(levelname)s"})

	require.NoError(t, h.Emit(context.Background(), record.New("root", record.INFO, record.Text("message"))))

	docs := coll.all()
	require.Len(t, docs, 1)
	assert.Equal(t, "message from INFO", docs[0].Lookup(formatter.FieldMessage).StringValue())
}

func TestSetFormatter(t *testing.T) {
	coll := &memCollection{}
	h := newTestHandler(t, coll, Options{})
	ctx := context.Background()

	f, err := formatter.New(formatter.Options{Template: "%(name)s: %(message)s"})
	require.NoError(t, err)
	h.SetFormatter(f)
	assert.Same(t, f, h.Formatter())
	require.NoError(t, h.Emit(ctx, record.New("app", record.INFO, record.Text("hello"))))

	h.SetFormatter(nil)
	require.NoError(t, h.Emit(ctx, record.New("app", record.INFO, record.Text("hello"))))

	docs := coll.all()
	require.Len(t, docs, 2)
	assert.Equal(t, "app: hello", docs[0].Lookup(formatter.FieldMessage).StringValue())
	assert.Equal(t, "hello", docs[1].Lookup(formatter.FieldMessage).StringValue())
}

func TestEmit_WriteTimeout(t *testing.T) {
	coll := &deadlineCollection{}
	rec := record.New("app", record.INFO, record.Text("x"))

	h := newTestHandler(t, coll, Options{})
	require.NoError(t, h.Emit(context.Background(), rec))
	assert.False(t, coll.hasDeadline)

	h = newTestHandler(t, coll, Options{WriteTimeout: time.Second})
	require.NoError(t, h.Emit(context.Background(), rec))
	assert.True(t, coll.hasDeadline)
}

func TestEmit_Concurrent(t *testing.T) {
	coll := &memCollection{}
	h := newTestHandler(t, coll, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				h.SetLevel(record.NOTSET)
			}
			_ = h.Emit(ctx, record.New("app", record.INFO, record.Text("n=%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, coll.all(), 20)
}

func TestNamed_SharesSettings(t *testing.T) {
	coll := &memCollection{}
	h := newTestHandler(t, coll, Options{LoggerName: "app"})
	child := h.Named("app.db")

	assert.Equal(t, "app", h.Name())
	assert.Equal(t, "app.db", child.Name())

	h.SetLevel(record.ERROR)
	assert.Equal(t, record.ERROR, child.Level())
}
