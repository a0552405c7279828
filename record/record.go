// Package record models a single log event as the host logging facility hands it to a
// sink, before it is turned into a stored document.
package record

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message is the payload of a record: either PlainText or Structured.
// The set of implementations is closed.
type Message interface {
	// Raw returns the message as the caller supplied it, before any substitution.
	Raw() any
	isMessage()
}

// PlainText is a printf-style format with its positional arguments.
type PlainText struct {
	Format string
	Args   []any
}

func (m PlainText) Raw() any { return m.Format }
func (PlainText) isMessage() {}

// Structured is a key/value message stored verbatim so its fields stay queryable.
type Structured struct {
	Fields bson.D
}

func (m Structured) Raw() any { return m.Fields }
func (Structured) isMessage() {}

// Text builds a plain-text message.
func Text(format string, args ...any) PlainText {
	return PlainText{Format: format, Args: args}
}

// FromMap builds a structured message from a map. Key order follows map iteration.
func FromMap(m map[string]any) Structured {
	fields := make(bson.D, 0, len(m))
	for k, v := range m {
		fields = append(fields, bson.E{Key: k, Value: v})
	}
	return Structured{Fields: fields}
}

// Exception is error context attached to a record, with the stack at capture time.
type Exception struct {
	Err   error
	Stack []byte
}

// CaptureException snapshots the calling goroutine's stack alongside err.
// Returns nil for a nil error.
func CaptureException(err error) *Exception {
	if err == nil {
		return nil
	}
	return &Exception{Err: err, Stack: debug.Stack()}
}

// Record is one logging call. It is owned by the caller for the duration of one emit
// and is never modified by the formatter.
type Record struct {
	Name      string // logger name
	Level     Level
	Message   Message
	Time      time.Time
	Exception *Exception
	Attrs     map[string]any // contextual attributes

	// Source location, empty when unknown.
	File     string
	Line     int
	Function string

	PID int
}

// New creates a record stamped with the current time and process ID.
func New(name string, level Level, msg Message) *Record {
	return &Record{
		Name:    name,
		Level:   level,
		Message: msg,
		Time:    time.Now(),
		PID:     os.Getpid(),
	}
}

// Args returns the substitution arguments of a plain-text message, nil otherwise.
func (r *Record) Args() []any {
	if pt, ok := r.Message.(PlainText); ok {
		return pt.Args
	}
	return nil
}

// String renders a short human readable form, used in error reports.
func (r *Record) String() string {
	var raw any
	if r.Message != nil {
		raw = r.Message.Raw()
	}
	return fmt.Sprintf("%s %s %v", r.Name, r.Level, raw)
}
