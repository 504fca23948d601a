// File: internal/browser/locator.go
package browser

import (
	"fmt"
	"strings"
)

// Strategy names how a Locator's value is interpreted.
type Strategy string

const (
	// ByCSS treats the value as a CSS selector.
	ByCSS Strategy = "css"
	// ByXPath treats the value as an XPath expression.
	ByXPath Strategy = "xpath"
)

// Locator pairs a selection strategy with its expression. Locators are plain
// values: they carry no element handle, so every use re-queries the live DOM.
type Locator struct {
	Strategy Strategy
	Value    string
}

// CSS builds a raw CSS locator.
func CSS(selector string) Locator { return Locator{Strategy: ByCSS, Value: selector} }

// XPath builds a raw XPath locator.
func XPath(expr string) Locator { return Locator{Strategy: ByXPath, Value: expr} }

// ByTestID locates an element by its data-testid attribute.
func ByTestID(id string) Locator {
	return CSS(fmt.Sprintf("[data-testid=%s]", cssQuote(id)))
}

// ByAriaLabel locates an element by its exact aria-label.
func ByAriaLabel(label string) Locator {
	return CSS(fmt.Sprintf("[aria-label=%s]", cssQuote(label)))
}

// ByVisibleText locates an element by its rendered text. With exact set, only
// elements whose text node equals the string match; otherwise any element
// whose content contains the string does. The default tag "*" matches any
// element.
func ByVisibleText(tag, text string, exact bool) Locator {
	if tag == "" {
		tag = "*"
	}
	lit := xpathLiteral(text)
	if exact {
		return XPath(fmt.Sprintf("//%s[text()=%s]", tag, lit))
	}
	return XPath(fmt.Sprintf("//%s[contains(., %s)]", tag, lit))
}

// ByPartialAttribute locates elements whose attribute value contains the
// given fragment, e.g. ByPartialAttribute("a", "href", "/download").
func ByPartialAttribute(tag, attr, fragment string) Locator {
	if tag == "" {
		tag = "*"
	}
	return CSS(fmt.Sprintf("%s[%s*=%s]", tag, attr, cssQuote(fragment)))
}

// String renders the locator for logs and error details.
func (l Locator) String() string {
	return string(l.Strategy) + "=" + l.Value
}

// IsZero reports whether the locator was never set.
func (l Locator) IsZero() bool { return l.Strategy == "" && l.Value == "" }

// queryJS returns a JS expression evaluating to the first matching element
// or null.
func (l Locator) queryJS() string {
	switch l.Strategy {
	case ByXPath:
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			jsString(l.Value))
	default:
		return fmt.Sprintf("document.querySelector(%s)", jsString(l.Value))
	}
}

// queryAllJS returns a JS expression evaluating to an array of all matches.
func (l Locator) queryAllJS() string {
	switch l.Strategy {
	case ByXPath:
		return fmt.Sprintf(`(() => {
	const out = [];
	const snap = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (let i = 0; i < snap.snapshotLength; i++) out.push(snap.snapshotItem(i));
	return out;
})()`, jsString(l.Value))
	default:
		return fmt.Sprintf("Array.from(document.querySelectorAll(%s))", jsString(l.Value))
	}
}

// cssQuote wraps a value in single quotes for use inside a CSS attribute
// selector.
func cssQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// jsString renders a Go string as a JS string literal.
func jsString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// xpathLiteral renders a string as an XPath literal, using concat() when the
// value mixes quote characters.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
