// Package handler provides StoreHandler, a log handler that stores every record it
// receives as a document in a MongoDB collection.
//
// StoreHandler implements slog.Handler, so it plugs into the standard logging
// facility:
//
//	h, err := handler.Dial(ctx, store.Options{Collection: "log"}, handler.Options{})
//	if err != nil { ... }
//	defer h.Close(ctx)
//	logger := slog.New(h)
//	logger.Info("%s logged in", handler.Args(user))
//	logger.Info("", handler.StructuredMap(map[string]any{"state": "PA"}))
//
// Records can also be built directly and passed to Emit.
//
// A document the store refuses (for example one holding a value with no BSON form)
// is dropped and reported through the ErrorReporter; Emit still succeeds. Any other
// storage error is printed to the fallback writer and returned.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/orgoj/mongolog/formatter"
	"github.com/orgoj/mongolog/internal/logger"
	"github.com/orgoj/mongolog/internal/metrics"
	"github.com/orgoj/mongolog/record"
	"github.com/orgoj/mongolog/store"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLoggerName names records when Options.LoggerName is empty.
const DefaultLoggerName = "root"

// Options configures a StoreHandler. The zero value is usable.
type Options struct {
	// Level is the minimum severity handled. NOTSET handles everything.
	Level record.Level
	// LoggerName is stored as the "name" of records coming through slog.
	LoggerName string
	// Formatter replaces the default DocumentFormatter.
	Formatter formatter.Formatter
	// Template is the output pattern of the default formatter, e.g.
	// "%(message)s from %(levelname)s". Ignored when Formatter is set.
	Template string
	// Filters are glob patterns on the logger name; a record must match one.
	// Empty passes every record.
	Filters []string
	// Reporter receives rejected documents. Defaults to the internal application logger.
	Reporter ErrorReporter
	// Fallback receives unexpected storage errors. Defaults to os.Stderr.
	Fallback io.Writer
	// Registerer, when set, registers the handler's Prometheus metrics.
	Registerer prometheus.Registerer
	// WriteTimeout bounds each insert. 0 blocks for as long as the write takes.
	WriteTimeout time.Duration
}

// settings is the mutable state shared by a handler and every handler derived
// from it with WithAttrs, WithGroup or Named.
type settings struct {
	mu        sync.RWMutex
	formatter formatter.Formatter
	level     record.Level
}

// StoreHandler writes log records to a collection.
type StoreHandler struct {
	coll         store.Collection
	closer       *store.MongoCollection // set when the handler opened the connection
	settings     *settings
	name         string
	filters      []glob.Glob
	reporter     ErrorReporter
	fallback     io.Writer
	fallbackMu   *sync.Mutex
	metrics      *metrics.HandlerMetrics
	writeTimeout time.Duration

	// slog state, see slog.go
	attrs  map[string]any
	groups []string
	preset pending
}

// New creates a handler writing to an already open collection.
func New(coll store.Collection, opts Options) (*StoreHandler, error) {
	if coll == nil {
		return nil, errors.New("collection is required")
	}

	f := opts.Formatter
	if f == nil {
		df, err := formatter.New(formatter.Options{Template: opts.Template})
		if err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		f = df
	}

	filters := make([]glob.Glob, 0, len(opts.Filters))
	for _, pattern := range opts.Filters {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern '%s': %w", pattern, err)
		}
		filters = append(filters, g)
	}

	m, err := metrics.NewHandlerMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	h := &StoreHandler{
		coll:         coll,
		settings:     &settings{formatter: f, level: opts.Level},
		name:         opts.LoggerName,
		filters:      filters,
		reporter:     opts.Reporter,
		fallback:     opts.Fallback,
		fallbackMu:   &sync.Mutex{},
		metrics:      m,
		writeTimeout: opts.WriteTimeout,
	}
	if h.name == "" {
		h.name = DefaultLoggerName
	}
	if h.reporter == nil {
		h.reporter = logger.NewReporter(logger.GetAppLogger(), 0)
	}
	if h.fallback == nil {
		h.fallback = os.Stderr
	}
	return h, nil
}

// Dial connects to the store described by so and creates a handler for it.
// Close releases the connection.
func Dial(ctx context.Context, so store.Options, opts Options) (*StoreHandler, error) {
	coll, err := store.Dial(ctx, so)
	if err != nil {
		return nil, err
	}
	h, err := New(coll, opts)
	if err != nil {
		_ = coll.Close(ctx)
		return nil, err
	}
	h.closer = coll
	return h, nil
}

// Close disconnects a connection opened by Dial. Handlers built on a supplied
// collection leave it open.
func (h *StoreHandler) Close(ctx context.Context) error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close(ctx)
}

// Level returns the minimum severity handled.
func (h *StoreHandler) Level() record.Level {
	h.settings.mu.RLock()
	defer h.settings.mu.RUnlock()
	return h.settings.level
}

// SetLevel changes the minimum severity handled.
func (h *StoreHandler) SetLevel(level record.Level) {
	h.settings.mu.Lock()
	defer h.settings.mu.Unlock()
	h.settings.level = level
}

// Formatter returns the formatter in use.
func (h *StoreHandler) Formatter() formatter.Formatter {
	h.settings.mu.RLock()
	defer h.settings.mu.RUnlock()
	return h.settings.formatter
}

// SetFormatter replaces the formatter. A nil formatter restores the default one.
func (h *StoreHandler) SetFormatter(f formatter.Formatter) {
	if f == nil {
		f = formatter.Default()
	}
	h.settings.mu.Lock()
	defer h.settings.mu.Unlock()
	h.settings.formatter = f
}

// Name returns the logger name given to records coming through slog.
func (h *StoreHandler) Name() string {
	return h.name
}

// Named returns a handler sharing this one's collection and settings that names
// its records name.
func (h *StoreHandler) Named(name string) *StoreHandler {
	h2 := h.clone()
	h2.name = name
	return h2
}

// Emit formats rec and writes it to the collection once.
//
// Records below the level threshold or not matching the filters are skipped.
// A rejected document is reported and nil is returned. Any other write error is
// printed to the fallback writer and returned.
func (h *StoreHandler) Emit(ctx context.Context, rec *record.Record) error {
	if rec.Level < h.Level() {
		return nil
	}
	if !h.accepts(rec.Name) {
		h.metrics.Observe(metrics.OutcomeFiltered)
		return nil
	}

	doc := h.Formatter().Format(rec)

	if h.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.writeTimeout)
		defer cancel()
	}

	err := h.coll.Insert(ctx, doc)
	switch {
	case err == nil:
		h.metrics.Observe(metrics.OutcomeStored)
		return nil
	case store.IsRejected(err):
		h.metrics.Observe(metrics.OutcomeRejected)
		if isReporting(ctx) {
			// the report itself was rejected; do not report it again
			h.handleError(rec, err)
			return nil
		}
		h.reporter.ReportRejected(ctx, rec, err)
		return nil
	default:
		h.metrics.Observe(metrics.OutcomeFailed)
		h.handleError(rec, err)
		return err
	}
}

// accepts reports whether a logger name passes the filters.
func (h *StoreHandler) accepts(name string) bool {
	if len(h.filters) == 0 {
		return true
	}
	for _, g := range h.filters {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// handleError prints a failed emit to the fallback writer.
func (h *StoreHandler) handleError(rec *record.Record, err error) {
	msg := fmt.Sprintf("--- Logging error ---\n%v\nRecord: %s\n%s\n", err, rec, debug.Stack())
	h.fallbackMu.Lock()
	defer h.fallbackMu.Unlock()
	_, _ = io.WriteString(h.fallback, msg)
}

func (h *StoreHandler) clone() *StoreHandler {
	h2 := *h
	return &h2
}
