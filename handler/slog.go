// handler/slog.go

package handler

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/orgoj/mongolog/formatter"
	"github.com/orgoj/mongolog/record"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// pending holds the attributes that shape the record itself rather than being
// stored as contextual fields.
type pending struct {
	args       []any
	structured *record.Structured
	exception  *record.Exception
}

type argsValue []any

type structuredValue record.Structured

type exceptionValue struct {
	exc *record.Exception
}

// Args attaches printf arguments to the message of a slog call:
//
//	logger.Info("%d users from %s", handler.Args(n, region))
func Args(args ...any) slog.Attr {
	return slog.Any(formatter.FieldArgs, argsValue(args))
}

// Structured makes fields the message of a slog call. The slog message text is
// ignored and the fields are stored as a queryable sub-document.
func Structured(fields bson.D) slog.Attr {
	return slog.Any(formatter.FieldMessage, structuredValue{Fields: fields})
}

// StructuredMap is Structured for a map.
func StructuredMap(m map[string]any) slog.Attr {
	return Structured(record.FromMap(m).Fields)
}

// Exception attaches err, with the current stack, as the record's exception info.
// A nil err attaches nothing.
func Exception(err error) slog.Attr {
	return slog.Any(formatter.FieldExcInfo, exceptionValue{exc: record.CaptureException(err)})
}

// Enabled implements slog.Handler.
func (h *StoreHandler) Enabled(_ context.Context, level slog.Level) bool {
	return record.FromSlog(level) >= h.Level()
}

// Handle implements slog.Handler by converting r into a record and emitting it.
func (h *StoreHandler) Handle(ctx context.Context, r slog.Record) error {
	p := h.preset

	local := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		addAttr(local, a, &p)
		return true
	})
	attrs := cloneAttrs(h.attrs)
	if len(local) > 0 {
		if attrs == nil {
			attrs = make(map[string]any, len(local))
		}
		mergeAt(attrs, h.groups, local)
	}

	var msg record.Message = record.PlainText{Format: r.Message, Args: p.args}
	if p.structured != nil {
		msg = *p.structured
	}

	rec := record.New(h.name, record.FromSlog(r.Level), msg)
	if !r.Time.IsZero() {
		rec.Time = r.Time
	}
	rec.Exception = p.exception
	rec.Attrs = attrs
	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		rec.File = f.File
		rec.Line = f.Line
		rec.Function = f.Function
	}

	return h.Emit(ctx, rec)
}

// WithAttrs implements slog.Handler.
func (h *StoreHandler) WithAttrs(as []slog.Attr) slog.Handler {
	if len(as) == 0 {
		return h
	}
	h2 := h.clone()
	local := make(map[string]any, len(as))
	for _, a := range as {
		addAttr(local, a, &h2.preset)
	}
	h2.attrs = cloneAttrs(h.attrs)
	if len(local) > 0 {
		if h2.attrs == nil {
			h2.attrs = make(map[string]any, len(local))
		}
		mergeAt(h2.attrs, h.groups, local)
	}
	return h2
}

// WithGroup implements slog.Handler. Attributes added later are nested under name.
func (h *StoreHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = make([]string, len(h.groups), len(h.groups)+1)
	copy(h2.groups, h.groups)
	h2.groups = append(h2.groups, name)
	return h2
}

// addAttr stores a into m, or into p when it is one of the record-shaping values.
func addAttr(m map[string]any, a slog.Attr, p *pending) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindAny {
		switch v := a.Value.Any().(type) {
		case argsValue:
			p.args = []any(v)
			return
		case structuredValue:
			s := record.Structured(v)
			p.structured = &s
			return
		case exceptionValue:
			if v.exc != nil {
				p.exception = v.exc
			}
			return
		}
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		if a.Key == "" {
			for _, ga := range group {
				addAttr(m, ga, p)
			}
			return
		}
		sub := make(map[string]any, len(group))
		for _, ga := range group {
			addAttr(sub, ga, p)
		}
		if len(sub) > 0 {
			m[a.Key] = sub
		}
	case slog.KindDuration:
		m[a.Key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			m[a.Key] = err.Error()
			return
		}
		m[a.Key] = a.Value.Any()
	default:
		m[a.Key] = a.Value.Any()
	}
}

// mergeAt copies src into the map found by following path from dst, creating
// nested maps as needed.
func mergeAt(dst map[string]any, path []string, src map[string]any) {
	for _, key := range path {
		next, ok := dst[key].(map[string]any)
		if !ok {
			next = make(map[string]any, len(src))
			dst[key] = next
		}
		dst = next
	}
	for k, v := range src {
		dst[k] = v
	}
}

// cloneAttrs copies m and every group map nested in it.
func cloneAttrs(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			v = cloneAttrs(sub)
		}
		out[k] = v
	}
	return out
}

// Ensure StoreHandler implements the slog.Handler interface.
var _ slog.Handler = (*StoreHandler)(nil)
