// Package formatter turns log records into documents suitable for a document store.
//
// A structured message is stored as-is under "message" so that its fields can be
// queried. A plain-text message is printf-substituted and, when a template is
// configured, rendered through it. Every document is enriched with the user, host
// and time of formatting.
package formatter

import (
	"path/filepath"

	"github.com/orgoj/mongolog/record"
)

// Document field names
const (
	FieldName      = "name"
	FieldLevelName = "levelname"
	FieldLevelNo   = "levelno"
	FieldMsg       = "msg"
	FieldArgs      = "args"
	FieldMessage   = "message"
	FieldCreated   = "created"
	FieldPathname  = "pathname"
	FieldFilename  = "filename"
	FieldLineno    = "lineno"
	FieldFuncName  = "funcName"
	FieldProcess   = "process"
	FieldExcInfo   = "exc_info"
	FieldUsername  = "username"
	FieldTime      = "time"
	FieldHost      = "host"
)

// Document is one stored log entry.
type Document map[string]any

// Formatter converts a record into a document.
type Formatter interface {
	Format(r *record.Record) Document
}

// Options configures a DocumentFormatter.
type Options struct {
	// Template renders the final message of plain-text records. Empty leaves the
	// substituted message unchanged.
	Template string
	// Environment defaults to SystemEnvironment().
	Environment Environment
}

// DocumentFormatter is the default Formatter.
type DocumentFormatter struct {
	template *Template
	env      Environment
}

// New creates a DocumentFormatter. It fails only on a malformed template.
func New(opts Options) (*DocumentFormatter, error) {
	f := &DocumentFormatter{env: opts.Environment}
	if f.env == nil {
		f.env = SystemEnvironment()
	}
	if opts.Template != "" {
		t, err := NewTemplate(opts.Template)
		if err != nil {
			return nil, err
		}
		f.template = t
	}
	return f, nil
}

// Default returns a formatter without a template using the system environment.
func Default() *DocumentFormatter {
	return &DocumentFormatter{env: SystemEnvironment()}
}

// Template returns the configured template, or nil.
func (f *DocumentFormatter) Template() *Template {
	return f.template
}

// Format builds the document for r. It never fails: substitution and template errors
// leave an empty message.
func (f *DocumentFormatter) Format(r *record.Record) Document {
	doc := make(Document, len(r.Attrs)+16)

	// Contextual attributes first so the record's own fields win on collision
	for k, v := range r.Attrs {
		doc[k] = v
	}

	args := r.Args()
	if args == nil {
		args = []any{}
	}
	doc[FieldName] = r.Name
	doc[FieldLevelName] = r.Level.String()
	doc[FieldLevelNo] = int(r.Level)
	doc[FieldArgs] = args
	doc[FieldCreated] = r.Time
	doc[FieldPathname] = r.File
	doc[FieldFilename] = ""
	if r.File != "" {
		doc[FieldFilename] = filepath.Base(r.File)
	}
	doc[FieldLineno] = r.Line
	doc[FieldFuncName] = r.Function
	doc[FieldProcess] = r.PID

	if r.Exception != nil {
		doc[FieldExcInfo] = FormatException(r.Exception)
	}

	switch m := r.Message.(type) {
	case record.Structured:
		doc[FieldMsg] = m.Fields
		doc[FieldMessage] = m.Fields
	case record.PlainText:
		doc[FieldMsg] = m.Format
		doc[FieldMessage] = f.formatText(m, doc)
	default:
		doc[FieldMsg] = ""
		doc[FieldMessage] = ""
	}

	doc[FieldUsername] = f.env.CurrentUser()
	doc[FieldTime] = f.env.Now()
	doc[FieldHost] = f.env.Hostname()

	return doc
}

// formatText substitutes the arguments and applies the template, if any.
func (f *DocumentFormatter) formatText(m record.PlainText, doc Document) string {
	msg, err := Substitute(m.Format, m.Args)
	if err != nil {
		msg = ""
	}
	if f.template == nil {
		return msg
	}

	doc[FieldMessage] = msg
	rendered, err := f.template.Render(doc)
	if err != nil {
		return ""
	}
	return rendered
}

// Ensure DocumentFormatter implements the Formatter interface.
var _ Formatter = (*DocumentFormatter)(nil)
