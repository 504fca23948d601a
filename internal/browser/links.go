// File: internal/browser/links.go
package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ExtractLinks waits for the container (condition: present) and then pulls
// link URLs out of every matching container in a single JS evaluation, one
// round trip regardless of page size. With WithLinkIndex(n) only the Nth
// anchor of each container is taken; a negative index errors before any
// waiting. A result that is not an array of strings logs a warning and
// yields an empty slice rather than an error.
func (h *Helper) ExtractLinks(ctx context.Context, container Locator, opts ...Option) ([]string, error) {
	s, err := h.apply(ConditionPresent, opts)
	if err != nil {
		return nil, err
	}
	if s.linkIndexSet && s.linkIndex < 0 {
		return nil, fmt.Errorf("link index must not be negative, got %d", s.linkIndex)
	}
	linkSel := s.linkSelector
	if linkSel == "" {
		linkSel = "a[href]"
	}

	if _, err := h.waitResolved(ctx, container, s, "extract_links"); err != nil {
		return nil, err
	}

	index := -1
	if s.linkIndexSet {
		index = s.linkIndex
	}
	script := extractLinksJS(container, linkSel, index)

	var links []string
	if err := h.page.Eval(ctx, script, &links); err != nil {
		h.logger.Warn("Link extraction returned an unusable result; treating as empty.",
			zap.String("container", container.String()), zap.Error(err))
		return []string{}, nil
	}
	if links == nil {
		links = []string{}
	}
	h.logger.Debug("Extracted links.",
		zap.String("container", container.String()), zap.Int("count", len(links)))
	return links, nil
}

// extractLinksJS builds the batched extraction script. An index below zero
// means "all anchors per container".
func extractLinksJS(container Locator, linkSel string, index int) string {
	return fmt.Sprintf(`(() => {
	const containers = %s;
	const sel = %s;
	const idx = %d;
	const out = [];
	for (const c of containers) {
		const anchors = c.querySelectorAll(sel);
		if (idx >= 0) {
			if (anchors.length > idx && anchors[idx].href) out.push(anchors[idx].href);
		} else {
			for (const a of anchors) {
				if (a.href) out.push(a.href);
			}
		}
	}
	return out;
})()`, container.queryAllJS(), jsString(linkSel), index)
}
