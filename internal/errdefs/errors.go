// File: internal/errdefs/errors.go
package errdefs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind tags an automation failure with its taxonomy variant.
type Kind string

const (
	// KindElementNotFound indicates an element could not be located within a timeout.
	KindElementNotFound Kind = "element_not_found"
	// KindActionFailed indicates an interaction failed after the element was located.
	KindActionFailed Kind = "action_failed"
	// KindNavigation indicates a navigation attempt ended on the wrong URL or title.
	KindNavigation Kind = "navigation"
	// KindDesktopOperation indicates an OS-level operation outside the browser failed.
	KindDesktopOperation Kind = "desktop_operation"
)

// Error is the single failure type for the automation layer. The Kind field
// distinguishes the taxonomy variants; Details carries variant-specific
// context (locator, timeout, url, ...) and renders with sorted keys so log
// lines and assertions stay deterministic.
type Error struct {
	Kind      Kind
	Component string
	Action    string
	Message   string
	Details   map[string]any
	Cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	b.WriteString(e.Message)
	if e.Action != "" {
		fmt.Fprintf(&b, " during '%s'", e.Action)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
		}
		fmt.Fprintf(&b, " (details: %s)", strings.Join(parts, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetail adds a single detail entry and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewElementNotFound reports that an element could not be located. The locator
// description and the timeout that elapsed are always recorded.
func NewElementNotFound(element, page, locator string, timeout time.Duration) *Error {
	return &Error{
		Kind:      KindElementNotFound,
		Component: page,
		Action:    fmt.Sprintf("locate '%s'", element),
		Message:   fmt.Sprintf("element %q not found", element),
		Details: map[string]any{
			"locator": locator,
			"timeout": timeout.String(),
		},
	}
}

// NewActionFailed reports that an interaction failed after the element was
// successfully located. Distinct from NewElementNotFound so callers can tell
// "never found it" from "found it, could not act on it".
func NewActionFailed(action, element, page string, cause error) *Error {
	return &Error{
		Kind:      KindActionFailed,
		Component: page,
		Action:    action,
		Message:   fmt.Sprintf("action %q failed on element %q", action, element),
		Cause:     cause,
	}
}

// NewNavigation reports a navigation that landed somewhere unexpected.
func NewNavigation(url, expected, actual string, timeout time.Duration, cause error) *Error {
	e := &Error{
		Kind:    KindNavigation,
		Action:  "navigate",
		Message: fmt.Sprintf("navigation to %q failed", url),
		Details: map[string]any{
			"url":     url,
			"timeout": timeout.String(),
		},
		Cause: cause,
	}
	if expected != "" {
		e.Details["expected"] = expected
		e.Details["actual"] = actual
	}
	return e
}

// NewDesktop reports a failed OS-level operation (screen capture, external
// tool invocation) performed outside the browser.
func NewDesktop(operation, target string, cause error) *Error {
	return &Error{
		Kind:    KindDesktopOperation,
		Action:  operation,
		Message: fmt.Sprintf("desktop operation %q failed", operation),
		Details: map[string]any{"target": target},
		Cause:   cause,
	}
}

func isKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsElementNotFound reports whether err is an element-not-found failure.
func IsElementNotFound(err error) bool { return isKind(err, KindElementNotFound) }

// IsActionFailed reports whether err is a post-location interaction failure.
func IsActionFailed(err error) bool { return isKind(err, KindActionFailed) }

// IsNavigation reports whether err is a navigation failure.
func IsNavigation(err error) bool { return isKind(err, KindNavigation) }

// IsDesktopOperation reports whether err is a desktop operation failure.
func IsDesktopOperation(err error) bool { return isKind(err, KindDesktopOperation) }
