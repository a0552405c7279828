// formatter/substitute.go

package formatter

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMissingArgument means the format has more verbs than arguments.
	ErrMissingArgument = errors.New("not enough arguments for format string")
	// ErrExtraArgument means some arguments were not consumed by the format.
	ErrExtraArgument = errors.New("not all arguments converted during formatting")
	// ErrBadArgument means an argument did not fit its verb, or the format is malformed.
	ErrBadArgument = errors.New("bad argument for format verb")
)

// fmtErrorMarker prefixes every complaint fmt writes into its output
// (%!d(string=x), %!s(MISSING), %!(EXTRA ...), %!(NOVERB), ...).
const fmtErrorMarker = "%!"

// nilArg stands in for nil arguments. %s and %v render "<nil>"; any other
// verb is a type error and renders fmt's own complaint.
type nilArg struct{}

func (nilArg) Format(f fmt.State, verb rune) {
	switch verb {
	case 's', 'v':
		fmt.Fprintf(f, fmt.FormatString(f, verb), "<nil>")
	default:
		fmt.Fprintf(f, "%%!%c(<nil>)", verb)
	}
}

// markedArg wraps an argument whose own text contains fmtErrorMarker. Every use
// is checked against a plain rendering of the value, so markers it writes are
// not mistaken for formatting errors.
type markedArg struct {
	value any
	check *markerCheck
}

type markerCheck struct {
	bad     bool
	written int
}

func (a markedArg) Format(f fmt.State, verb rune) {
	out := fmt.Sprintf(fmt.FormatString(f, verb), a.value)
	n := strings.Count(out, fmtErrorMarker)
	if n > strings.Count(fmt.Sprint(a.value), fmtErrorMarker) {
		a.check.bad = true
	}
	a.check.written += n
	_, _ = io.WriteString(f, out)
}

// sprintf formats args and reports whether fmt complained about any of them.
func sprintf(format string, args ...any) (string, bool) {
	check := &markerCheck{}
	wrapped := make([]any, len(args))
	for i, a := range args {
		switch {
		case a == nil:
			wrapped[i] = nilArg{}
		case strings.Contains(fmt.Sprint(a), fmtErrorMarker):
			wrapped[i] = markedArg{value: a, check: check}
		default:
			wrapped[i] = a
		}
	}
	out := fmt.Sprintf(format, wrapped...)
	return out, !check.bad && strings.Count(out, fmtErrorMarker) == check.written
}

// Substitute applies printf-style args to format.
// With no arguments the format is returned verbatim.
func Substitute(format string, args []any) (string, error) {
	if len(args) == 0 {
		return format, nil
	}

	verbs, counted := countVerbs(format)
	if counted {
		if verbs > len(args) {
			return "", fmt.Errorf("%w: %d verbs, %d arguments", ErrMissingArgument, verbs, len(args))
		}
		if verbs < len(args) {
			return "", fmt.Errorf("%w: %d verbs, %d arguments", ErrExtraArgument, verbs, len(args))
		}
	}

	out, ok := sprintf(format, args...)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrBadArgument, format)
	}
	return out, nil
}

// countVerbs returns how many arguments format consumes, including '*' widths and
// precisions. counted is false when explicit argument indexes make the count
// meaningless; the caller then relies on fmt's own markers.
func countVerbs(format string) (n int, counted bool) {
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i >= len(format) {
			// trailing '%' is reported by fmt as %!(NOVERB)
			return n, true
		}
		if format[i] == '%' {
			continue
		}
		// flags
		for i < len(format) && strings.IndexByte("+-# 0", format[i]) >= 0 {
			i++
		}
		// width
		if i < len(format) && format[i] == '*' {
			n++
			i++
		}
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			i++
		}
		// precision
		if i < len(format) && format[i] == '.' {
			i++
			if i < len(format) && format[i] == '*' {
				n++
				i++
			}
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				i++
			}
		}
		if i < len(format) && format[i] == '[' {
			return n, false
		}
		if i >= len(format) {
			return n, true
		}
		_, size := utf8.DecodeRuneInString(format[i:])
		i += size - 1
		n++
	}
	return n, true
}
