// internal/logger/reporter.go

package logger

import (
	"context"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/orgoj/mongolog/record"
	"golang.org/x/time/rate"
)

// Reporter writes a meta-log entry to the application logger for every record
// the store refused to accept.
type Reporter struct {
	app        *AppLogger
	limiter    *rate.Limiter // nil means unlimited
	suppressed atomic.Int64
}

// NewReporter creates a reporter. perMinute > 0 caps how many reports are written
// per minute, with bursts up to perMinute; suppressed reports are counted and
// summarised with the next report that gets through.
func NewReporter(app *AppLogger, perMinute int) *Reporter {
	r := &Reporter{app: app}
	if perMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return r
}

// ReportRejected logs the failure with the error detail and the current stack.
func (r *Reporter) ReportRejected(_ context.Context, rec *record.Record, err error) {
	if r.limiter != nil && !r.limiter.Allow() {
		r.suppressed.Add(1)
		return
	}
	if n := r.suppressed.Swap(0); n > 0 {
		r.app.Warn("%d rejected-record reports suppressed by rate limit", n)
	}
	r.app.Error("Unable to save log record: %v (record: %s)\n%s", err, rec, indent(string(debug.Stack())))
}

// Suppressed returns the number of reports dropped since the last written one.
func (r *Reporter) Suppressed() int64 {
	return r.suppressed.Load()
}

func indent(text string) string {
	text = strings.TrimRight(text, "\n")
	return "  " + strings.ReplaceAll(text, "\n", "\n  ")
}
