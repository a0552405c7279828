// record/level.go

package record

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is the severity of a log record. Higher is more severe.
type Level int

const (
	// NOTSET lets every record through a threshold.
	NOTSET Level = 0
	TRACE  Level = 10
	DEBUG  Level = 20
	INFO   Level = 30
	WARN   Level = 40
	ERROR  Level = 50
	FATAL  Level = 60
)

// Level to string mapping
var levelNames = map[Level]string{
	NOTSET: "NOTSET",
	TRACE:  "TRACE",
	DEBUG:  "DEBUG",
	INFO:   "INFO",
	WARN:   "WARN",
	ERROR:  "ERROR",
	FATAL:  "FATAL",
}

// LevelNameToLevel maps string level names to level values
var LevelNameToLevel = map[string]Level{
	"NOTSET":   NOTSET,
	"TRACE":    TRACE,
	"DEBUG":    DEBUG,
	"INFO":     INFO,
	"WARN":     WARN,
	"WARNING":  WARN,
	"ERROR":    ERROR,
	"FATAL":    FATAL,
	"CRITICAL": FATAL,
}

// String returns the level name, e.g. "INFO". Unregistered values render as "Level N".
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level %d", int(l))
}

// ParseLevel converts a case-insensitive level name to a Level.
func ParseLevel(name string) (Level, error) {
	level, ok := LevelNameToLevel[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return NOTSET, fmt.Errorf("invalid log level: %s", name)
	}
	return level, nil
}

// FromSlog maps a slog level onto the nearest band at or below it.
func FromSlog(l slog.Level) Level {
	switch {
	case l < slog.LevelDebug:
		return TRACE
	case l < slog.LevelInfo:
		return DEBUG
	case l < slog.LevelWarn:
		return INFO
	case l < slog.LevelError:
		return WARN
	case l < slog.LevelError+4:
		return ERROR
	default:
		return FATAL
	}
}
