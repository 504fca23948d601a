// File: internal/browser/condition.go
package browser

import (
	"fmt"
	"strings"
)

// Condition names a readiness state an element must reach before a wait is
// satisfied.
type Condition string

const (
	// ConditionPresent requires the element to exist in the DOM.
	ConditionPresent Condition = "present"
	// ConditionVisible additionally requires it to be rendered and non-hidden.
	ConditionVisible Condition = "visible"
	// ConditionClickable additionally requires it to be enabled.
	ConditionClickable Condition = "clickable"
)

var validConditions = []Condition{ConditionPresent, ConditionVisible, ConditionClickable}

// ParseCondition resolves a condition name. Unknown names fail immediately,
// before any waiting begins, so a typo surfaces as a fast configuration error
// rather than a slow timeout.
func ParseCondition(name string) (Condition, error) {
	c := Condition(strings.ToLower(strings.TrimSpace(name)))
	for _, v := range validConditions {
		if c == v {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown wait condition %q (valid: present, visible, clickable)", name)
}

// visibleJS is the fragment computing visibility for an element bound to `el`.
const visibleJS = `(() => {
	const st = window.getComputedStyle(el);
	if (st.display === 'none' || st.visibility === 'hidden' || st.opacity === '0') return false;
	const r = el.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
})()`

// predicateJS compiles the condition into a self-contained JS boolean
// expression. The locator is re-queried inside the predicate, so each poll
// observes the live DOM and stale handles cannot occur.
func (c Condition) predicateJS(l Locator) string {
	var body string
	switch c {
	case ConditionVisible:
		body = "return " + visibleJS + ";"
	case ConditionClickable:
		body = fmt.Sprintf(`if (!%s) return false;
	return !el.disabled && el.getAttribute('aria-disabled') !== 'true';`, visibleJS)
	default: // present
		body = "return true;"
	}
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	%s
})()`, l.queryJS(), body)
}

// absencePredicateJS compiles the inverse wait: gone from the DOM, or present
// but no longer visible.
func absencePredicateJS(l Locator, requireGone bool) string {
	if requireGone {
		return fmt.Sprintf("(%s) === null", l.queryJS())
	}
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return true;
	return !%s;
})()`, l.queryJS(), visibleJS)
}

// textPredicateJS waits for the element to exist and contain the given text.
func textPredicateJS(l Locator, text string) string {
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	return (el.textContent || '').includes(%s);
})()`, l.queryJS(), jsString(text))
}

// urlContainsPredicateJS waits for the page URL to contain the fragment.
func urlContainsPredicateJS(fragment string) string {
	return fmt.Sprintf("window.location.href.includes(%s)", jsString(fragment))
}
