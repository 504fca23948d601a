// File: internal/browser/relative.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crealab/webpilot/internal/errdefs"
)

// Direction is a spatial relation between a base element and a target.
type Direction string

const (
	RightOf Direction = "right_of"
	LeftOf  Direction = "left_of"
	Above   Direction = "above"
	Below   Direction = "below"
	Near    Direction = "near"
)

// nearThresholdPx bounds the center-to-center distance for Near.
const nearThresholdPx = 50

var validDirections = []Direction{RightOf, LeftOf, Above, Below, Near}

// ParseDirection resolves a direction name, failing fast on unknown input.
func ParseDirection(name string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(name)))
	for _, v := range validDirections {
		if d == v {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown spatial direction %q (valid: right_of, left_of, above, below, near)", name)
}

// relTagAttr marks the resolved target so later actions can re-query it by a
// stable CSS selector.
const relTagAttr = "data-wp-rel"

// FindRelative resolves a target locator by its spatial relation to a base
// element: the first candidate matching target that sits in the given
// direction from base. The base is waited on first, so a failure tells you
// which side was missing: a base timeout reports phase=base, a geometry
// timeout reports phase=target against a found base. The returned element is
// tagged in the DOM and re-queried by that tag.
func (h *Helper) FindRelative(ctx context.Context, base, target Locator, dir Direction, opts ...Option) (*Element, error) {
	if _, err := ParseDirection(string(dir)); err != nil {
		return nil, err
	}
	s, err := h.apply(ConditionPresent, opts)
	if err != nil {
		return nil, err
	}

	baseSettings := s
	baseSettings.condition = ConditionPresent
	if baseSettings.description == "" {
		baseSettings.description = fmt.Sprintf("base element %s", base)
	}
	if _, err := h.waitResolved(ctx, base, baseSettings, "find_relative_base"); err != nil {
		var ee *errdefs.Error
		if errors.As(err, &ee) {
			ee.WithDetail("phase", "base")
		}
		return nil, err
	}

	token := uuid.New().String()
	pred := relativePredicateJS(base, target, dir, token)

	if !h.pollPredicate(ctx, pred, s.timeout) {
		desc := s.description
		if desc == "" {
			desc = fmt.Sprintf("%s %s of %s", target, dir, base)
		}
		nfErr := errdefs.NewElementNotFound(desc, h.currentURLOrDefault(ctx), target.String(), s.timeout).
			WithDetail("phase", "target").
			WithDetail("base", base.String()).
			WithDetail("direction", string(dir))
		h.logger.Warn("No target satisfied the spatial relation.",
			zap.String("base", base.String()),
			zap.String("target", target.String()),
			zap.String("direction", string(dir)))
		h.notifyFailure(ctx, "find_relative", nfErr)
		return nil, nfErr
	}

	return &Element{h: h, loc: CSS(fmt.Sprintf("[%s='%s']", relTagAttr, token))}, nil
}

// relativePredicateJS scans target candidates for one satisfying the
// geometric relation to the base, tagging the winner. Re-run on every poll,
// so both rectangles track the live layout.
func relativePredicateJS(base, target Locator, dir Direction, token string) string {
	var test string
	switch dir {
	case RightOf:
		test = "c.left >= b.right - 1"
	case LeftOf:
		test = "c.right <= b.left + 1"
	case Above:
		test = "c.bottom <= b.top + 1"
	case Below:
		test = "c.top >= b.bottom - 1"
	case Near:
		test = fmt.Sprintf(`(Math.hypot(
			(c.left + c.right) / 2 - (b.left + b.right) / 2,
			(c.top + c.bottom) / 2 - (b.top + b.bottom) / 2) <= %d)`, nearThresholdPx)
	}

	return fmt.Sprintf(`(() => {
	const baseEl = %s;
	if (!baseEl) return false;
	const b = baseEl.getBoundingClientRect();
	const candidates = %s;
	for (const cand of candidates) {
		if (cand === baseEl) continue;
		const c = cand.getBoundingClientRect();
		if (c.width === 0 && c.height === 0) continue;
		if (%s) {
			for (const el of document.querySelectorAll('[%s]')) el.removeAttribute('%s');
			cand.setAttribute('%s', %s);
			return true;
		}
	}
	return false;
})()`, base.queryJS(), target.queryAllJS(), test, relTagAttr, relTagAttr, relTagAttr, jsString(token))
}
