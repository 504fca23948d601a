// File: internal/browser/condition_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	cases := []struct {
		in   string
		want Condition
	}{
		{"present", ConditionPresent},
		{"visible", ConditionVisible},
		{"clickable", ConditionClickable},
		{"  Visible  ", ConditionVisible},
		{"CLICKABLE", ConditionClickable},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCondition(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseConditionUnknown(t *testing.T) {
	for _, in := range []string{"", "ready", "click able", "displayed"} {
		t.Run("invalid "+in, func(t *testing.T) {
			_, err := ParseCondition(in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "valid: present, visible, clickable")
		})
	}
}

func TestPredicateShapes(t *testing.T) {
	l := CSS("#x")

	present := ConditionPresent.predicateJS(l)
	assert.Contains(t, present, `document.querySelector("#x")`)
	assert.Contains(t, present, "if (!el) return false")
	assert.NotContains(t, present, "getComputedStyle")

	visible := ConditionVisible.predicateJS(l)
	assert.Contains(t, visible, "getComputedStyle")
	assert.Contains(t, visible, "getBoundingClientRect")
	assert.NotContains(t, visible, "aria-disabled")

	clickable := ConditionClickable.predicateJS(l)
	assert.Contains(t, clickable, "getComputedStyle")
	assert.Contains(t, clickable, "el.disabled")
	assert.Contains(t, clickable, "aria-disabled")
}

func TestPredicateRequeriesPerPoll(t *testing.T) {
	// The locator query must live inside the predicate, so each evaluation
	// re-queries the DOM instead of reusing a node handle.
	js := ConditionVisible.predicateJS(XPath("//button"))
	assert.Contains(t, js, "document.evaluate")
}

func TestAbsencePredicates(t *testing.T) {
	l := CSS("#spinner")

	gone := absencePredicateJS(l, true)
	assert.Contains(t, gone, "=== null")

	hidden := absencePredicateJS(l, false)
	assert.Contains(t, hidden, "if (!el) return true")
	assert.Contains(t, hidden, "getComputedStyle")
}

func TestTextAndURLPredicates(t *testing.T) {
	js := textPredicateJS(CSS("#msg"), "Order placed")
	assert.Contains(t, js, "textContent")
	assert.Contains(t, js, `"Order placed"`)

	u := urlContainsPredicateJS("/orders/")
	assert.Contains(t, u, "window.location.href.includes")
	assert.Contains(t, u, `"/orders/"`)
}
