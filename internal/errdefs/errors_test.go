// File: internal/errdefs/errors_test.go
package errdefs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementNotFoundMessage(t *testing.T) {
	err := NewElementNotFound("submit button", "https://example.com/login", "css=[data-testid='submit']", 10*time.Second)

	msg := err.Error()
	assert.Contains(t, msg, "[https://example.com/login]")
	assert.Contains(t, msg, `element "submit button" not found`)
	assert.Contains(t, msg, "locator=css=[data-testid='submit']")
	assert.Contains(t, msg, "timeout=10s")
}

func TestDetailsRenderSorted(t *testing.T) {
	err := &Error{
		Kind:    KindActionFailed,
		Message: "boom",
		Details: map[string]any{"zeta": 1, "alpha": 2, "mid": 3},
	}
	assert.Contains(t, err.Error(), "(details: alpha=2, mid=3, zeta=1)")
}

func TestUnwrapAndCauseFormatting(t *testing.T) {
	cause := errors.New("node is detached from document")
	err := NewActionFailed("click", "login link", "https://example.com", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "(caused by: node is detached from document)")
	assert.Contains(t, err.Error(), "during 'click'")
}

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want func(error) bool
	}{
		{"element not found", NewElementNotFound("x", "", "css=#x", time.Second), IsElementNotFound},
		{"action failed", NewActionFailed("type_text", "x", "", nil), IsActionFailed},
		{"navigation", NewNavigation("https://a.test", "", "", time.Second, nil), IsNavigation},
		{"desktop", NewDesktop("screen_capture", "display 0", nil), IsDesktopOperation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want(tc.err))
			// Wrapping must not hide the kind.
			assert.True(t, tc.want(fmt.Errorf("outer: %w", tc.err)))
			assert.False(t, tc.want(errors.New("plain")))
		})
	}
}

func TestPredicatesDistinguishKinds(t *testing.T) {
	nf := NewElementNotFound("x", "", "css=#x", time.Second)
	assert.False(t, IsActionFailed(nf))
	assert.False(t, IsNavigation(nf))
	assert.False(t, IsDesktopOperation(nf))
}

func TestWithDetail(t *testing.T) {
	err := NewDesktop("screen_capture", "display 0", nil).WithDetail("tool", "scrot")
	assert.Contains(t, err.Error(), "tool=scrot")
}

func TestNavigationMismatchDetails(t *testing.T) {
	err := NewNavigation("https://a.test", "Dashboard", "Login", 30*time.Second, nil)
	assert.Contains(t, err.Error(), "expected=Dashboard")
	assert.Contains(t, err.Error(), "actual=Login")
}
