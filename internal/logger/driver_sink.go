// internal/logger/driver_sink.go

package logger

import (
	"fmt"
	"strings"

	"github.com/orgoj/mongolog/record"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DriverSink routes MongoDB driver log messages to the application logger.
type DriverSink struct {
	app *AppLogger
}

var _ options.LogSink = DriverSink{}

// NewDriverSink wraps app as a driver log sink.
func NewDriverSink(app *AppLogger) DriverSink {
	return DriverSink{app: app}
}

// Info logs a driver message. Driver level 1 is info, higher is debug.
func (s DriverSink) Info(level int, message string, keysAndValues ...any) {
	lvl := record.INFO
	if level > 1 {
		lvl = record.DEBUG
	}
	s.app.Logf(lvl, "mongo driver: %s%s", message, formatKeysAndValues(keysAndValues))
}

// Error logs a driver error.
func (s DriverSink) Error(err error, message string, keysAndValues ...any) {
	s.app.Error("mongo driver: %s: %v%s", message, err, formatKeysAndValues(keysAndValues))
}

func formatKeysAndValues(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < len(kv); i += 2 {
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("<missing>")
		}
	}
	return sb.String()
}
