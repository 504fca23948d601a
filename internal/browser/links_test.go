// File: internal/browser/links_test.go
package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crealab/webpilot/internal/errdefs"
)

// linkPage answers the presence wait with true and the extraction script
// with the scripted slice.
func linkPage(links []string, extractErr error) *fakePage {
	page := &fakePage{}
	page.evalFn = func(expr string, out any) error {
		if p, ok := out.(*bool); ok {
			*p = true
			return nil
		}
		if p, ok := out.(*[]string); ok {
			if extractErr != nil {
				return extractErr
			}
			*p = links
		}
		return nil
	}
	return page
}

func TestExtractLinksAllAnchors(t *testing.T) {
	want := []string{"https://a.test/1", "https://a.test/2", "https://a.test/3"}
	page := linkPage(want, nil)
	h := newTestHelper(page)

	got, err := h.ExtractLinks(context.Background(), CSS("ul.results li"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// One wait poll plus exactly one extraction evaluation.
	script := page.lastExpr()
	assert.Contains(t, script, "querySelectorAll")
	assert.Contains(t, script, `"a[href]"`)
	assert.Contains(t, script, "idx = -1")
}

func TestExtractLinksOrdinalSelection(t *testing.T) {
	page := linkPage([]string{"https://a.test/second"}, nil)
	h := newTestHelper(page)

	got, err := h.ExtractLinks(context.Background(), CSS("div.card"), WithLinkIndex(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test/second"}, got)
	assert.Contains(t, page.lastExpr(), "idx = 1")
}

func TestExtractLinksNegativeIndexFailsBeforeWaiting(t *testing.T) {
	page := linkPage(nil, nil)
	h := newTestHelper(page)

	_, err := h.ExtractLinks(context.Background(), CSS("div"), WithLinkIndex(-2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
	assert.Zero(t, page.evalCount())
}

func TestExtractLinksContainerTimeout(t *testing.T) {
	page := &fakePage{evalFn: answer(false)}
	h := newTestHelper(page)

	_, err := h.ExtractLinks(context.Background(), CSS("#results"), WithTimeout(20*time.Millisecond))
	require.Error(t, err)
	assert.True(t, errdefs.IsElementNotFound(err))
}

func TestExtractLinksUnusableResultIsEmptyNotError(t *testing.T) {
	page := linkPage(nil, errors.New("result is not an array"))
	h := newTestHelper(page)

	got, err := h.ExtractLinks(context.Background(), CSS("#results"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExtractLinksCustomSelector(t *testing.T) {
	page := linkPage([]string{"https://a.test/x"}, nil)
	h := newTestHelper(page)

	_, err := h.ExtractLinks(context.Background(), CSS("#nav"), WithLinkSelector("a.external"))
	require.NoError(t, err)
	assert.Contains(t, page.lastExpr(), `"a.external"`)
}

func TestExtractLinksJSHandlesXPathContainer(t *testing.T) {
	script := extractLinksJS(XPath("//div[@class='row']"), "a[href]", -1)
	assert.Contains(t, script, "document.evaluate")
	assert.Contains(t, script, "ORDERED_NODE_SNAPSHOT_TYPE")
	assert.False(t, strings.Contains(script, "document.querySelectorAll(\"//div"),
		"xpath containers must not be fed to querySelectorAll")
}
