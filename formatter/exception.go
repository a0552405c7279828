// formatter/exception.go

package formatter

import (
	"fmt"
	"strings"

	"github.com/orgoj/mongolog/record"
)

// TracebackHeader opens every rendered exception.
const TracebackHeader = "Traceback (most recent call last):"

// FormatException renders exception info as text: the header, the captured goroutine
// stack, then a "<type>: <message>" line.
func FormatException(exc *record.Exception) string {
	if exc == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(TracebackHeader)
	sb.WriteByte('\n')

	stack := strings.TrimRight(string(exc.Stack), "\n")
	if stack != "" {
		for _, line := range strings.Split(stack, "\n") {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	if exc.Err != nil {
		fmt.Fprintf(&sb, "%T: %s", exc.Err, exc.Err.Error())
	} else {
		sb.WriteString("<nil>")
	}
	return sb.String()
}
