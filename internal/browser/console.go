// File: internal/browser/console.go
package browser

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const consoleBufferMax = 256

// consoleBuffer accumulates formatted console entries in a bounded ring so a
// chatty page cannot grow memory without limit.
type consoleBuffer struct {
	mu      sync.Mutex
	max     int
	entries []string
	dropped int
}

func newConsoleBuffer(max int) *consoleBuffer {
	return &consoleBuffer{max: max}
}

func (b *consoleBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) >= b.max {
		b.entries = b.entries[1:]
		b.dropped++
	}
	b.entries = append(b.entries, line)
}

func (b *consoleBuffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.entries))
	copy(out, b.entries)
	if b.dropped > 0 {
		out = append(out, fmt.Sprintf("[truncated: %d earlier entries dropped]", b.dropped))
	}
	return out
}

// attachConsoleListener wires CDP console and exception events into the
// session's buffer for the lifetime of the session context.
func (s *Session) attachConsoleListener() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			s.console.add(formatConsoleEvent(e))
		case *runtime.EventExceptionThrown:
			s.console.add(formatExceptionEvent(e))
		}
	})
}

func formatConsoleEvent(e *runtime.EventConsoleAPICalled) string {
	var textBuilder strings.Builder
	for i, arg := range e.Args {
		if i > 0 {
			textBuilder.WriteString(" ")
		}
		// Go through hoops to get a clean string representation of the
		// console argument.
		var val interface{}
		if arg.Value != nil && json.Unmarshal(arg.Value, &val) == nil {
			textBuilder.WriteString(fmt.Sprintf("%v", val))
		} else if arg.Description != "" {
			textBuilder.WriteString(arg.Description)
		} else {
			textBuilder.WriteString(fmt.Sprintf("[%s]", arg.Type))
		}
	}
	return fmt.Sprintf("[%s] %s", e.Type, textBuilder.String())
}

func formatExceptionEvent(e *runtime.EventExceptionThrown) string {
	detail := e.ExceptionDetails
	if detail == nil {
		return "[exception] unknown"
	}
	msg := detail.Text
	if detail.Exception != nil && detail.Exception.Description != "" {
		msg = detail.Exception.Description
	}
	return fmt.Sprintf("[exception] %s (%s:%d)", msg, detail.URL, detail.LineNumber)
}
