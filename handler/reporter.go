// handler/reporter.go

package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/orgoj/mongolog/record"
)

// ErrorReporter is told about every document the store rejected.
type ErrorReporter interface {
	ReportRejected(ctx context.Context, rec *record.Record, err error)
}

type reportingKey struct{}

// isReporting reports whether ctx belongs to a rejection report in progress.
func isReporting(ctx context.Context) bool {
	v, _ := ctx.Value(reportingKey{}).(bool)
	return v
}

// SlogReporter reports rejected documents as ERROR records on a slog.Logger,
// with the error's stack attached as exception info. The logger may be backed by
// the same StoreHandler; a report that is itself rejected goes to the fallback
// writer instead of being reported again.
type SlogReporter struct {
	Logger *slog.Logger
}

// ReportRejected logs "Unable to save log record: <err>".
func (r SlogReporter) ReportRejected(ctx context.Context, rec *record.Record, err error) {
	ctx = context.WithValue(ctx, reportingKey{}, true)
	r.Logger.ErrorContext(ctx, fmt.Sprintf("Unable to save log record: %v", err),
		Exception(err),
		slog.String("rejected_logger", rec.Name),
		slog.String("rejected_level", rec.Level.String()),
	)
}
