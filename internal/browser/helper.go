// File: internal/browser/helper.go
package browser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crealab/webpilot/internal/config"
	"github.com/crealab/webpilot/internal/debug"
	"github.com/crealab/webpilot/internal/errdefs"
)

// Page is the minimal surface of a browser session the interaction layer
// drives. Session implements it; tests substitute fakes so the wait and
// retry logic is exercised without a real browser.
type Page interface {
	// Eval evaluates a JS expression and unmarshals its result into out.
	Eval(ctx context.Context, expr string, out any) error
	// Click dispatches a click on the first element matching the locator.
	Click(ctx context.Context, l Locator) error
	// SendKeys types text into the first element matching the locator,
	// clearing its current value first when clearFirst is set.
	SendKeys(ctx context.Context, l Locator, text string, clearFirst bool) error
	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)
}

// FailureSink receives element-location and interaction failures so debug
// artifacts can be captured while the page state is still intact.
// Implementations must never panic or block indefinitely.
type FailureSink interface {
	CaptureFailure(ctx context.Context, label string, cause error)
}

// Helper is the wait/locate/retry layer. It exposes two families over one
// polling engine: Try* methods return a bare bool and never raise, while the
// element-returning methods raise a tagged ElementNotFound and notify the
// failure sink. The helper is single-threaded like the session beneath it.
type Helper struct {
	page   Page
	logger *zap.Logger
	sink   FailureSink

	defaultTimeout time.Duration
	pollInterval   time.Duration
}

// NewHelper builds an interaction helper over a page. Timeouts and poll
// interval come from the browser configuration.
func NewHelper(page Page, cfg config.BrowserConfig, logger *zap.Logger) *Helper {
	timeout := cfg.ImplicitWait
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Helper{
		page:           page,
		logger:         logger.Named("helper"),
		defaultTimeout: timeout,
		pollInterval:   interval,
	}
}

// SetFailureSink attaches the debug capture sink. A nil sink disables
// capture but changes nothing else.
func (h *Helper) SetFailureSink(s FailureSink) { h.sink = s }

// -- options --

type settings struct {
	timeout       time.Duration
	condition     Condition
	conditionName string
	description   string
	tag           string
	exact         bool
	exactSet      bool
	clear         bool
	clearSet      bool
	behavior      string
	block         string
	linkSelector  string
	linkIndex     int
	linkIndexSet  bool
}

// Option adjusts a single wait or interaction call.
type Option func(*settings)

// WithTimeout overrides the configured implicit wait for this call.
func WithTimeout(d time.Duration) Option { return func(s *settings) { s.timeout = d } }

// WithCondition overrides the operation's default readiness condition.
func WithCondition(c Condition) Option { return func(s *settings) { s.condition = c } }

// WithConditionName is WithCondition for string inputs; an unknown name
// makes the call fail before any waiting happens.
func WithConditionName(name string) Option { return func(s *settings) { s.conditionName = name } }

// WithDescription names the element in errors and artifact labels.
func WithDescription(d string) Option { return func(s *settings) { s.description = d } }

// WithTag restricts text and attribute locator builders to a specific tag.
func WithTag(tag string) Option { return func(s *settings) { s.tag = tag } }

// WithSubstringMatch relaxes visible-text lookup from exact to contains.
func WithSubstringMatch() Option {
	return func(s *settings) { s.exact = false; s.exactSet = true }
}

// WithClear controls whether typing clears the field first.
func WithClear(clear bool) Option { return func(s *settings) { s.clear = clear; s.clearSet = true } }

// WithScrollBehavior sets the scrollIntoView behavior (auto or smooth).
func WithScrollBehavior(b string) Option { return func(s *settings) { s.behavior = b } }

// WithScrollBlock sets the scrollIntoView block alignment.
func WithScrollBlock(b string) Option { return func(s *settings) { s.block = b } }

// WithLinkSelector overrides the anchor selector used inside link containers.
func WithLinkSelector(sel string) Option { return func(s *settings) { s.linkSelector = sel } }

// WithLinkIndex extracts only the Nth link of each container.
func WithLinkIndex(i int) Option {
	return func(s *settings) { s.linkIndex = i; s.linkIndexSet = true }
}

// apply folds options over defaults. Condition name resolution happens here,
// which is what makes invalid names fail fast.
func (h *Helper) apply(defaultCond Condition, opts []Option) (settings, error) {
	s := settings{
		timeout:   h.defaultTimeout,
		condition: defaultCond,
		exact:     true,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.conditionName != "" {
		c, err := ParseCondition(s.conditionName)
		if err != nil {
			return settings{}, err
		}
		s.condition = c
	}
	return s, nil
}

// -- polling engine --

// pollPredicate evaluates a JS predicate until it reports true or the
// timeout elapses. Evaluation errors are treated as "not yet": mid-navigation
// the page may briefly refuse evaluation, and the next poll re-queries.
func (h *Helper) pollPredicate(ctx context.Context, pred string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		var ok bool
		if err := h.page.Eval(ctx, pred, &ok); err != nil {
			h.logger.Debug("Predicate evaluation failed; will retry.", zap.Error(err))
		} else if ok {
			return true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		wait := h.pollInterval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			h.logger.Debug("Wait abandoned by context.", zap.Error(ctx.Err()))
			return false
		case <-time.After(wait):
		}
	}
}

// currentURLOrDefault fetches the page URL for error context, degrading to a
// placeholder rather than failing while a failure is being reported.
func (h *Helper) currentURLOrDefault(ctx context.Context) string {
	url, err := h.page.CurrentURL(ctx)
	if err != nil || url == "" {
		return "unknown"
	}
	return url
}

// notifyFailure hands the failure to the sink, shielding the caller from
// anything the capture path might do.
func (h *Helper) notifyFailure(ctx context.Context, label string, cause error) {
	if h.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Failure sink panicked.", zap.Any("panic", r))
		}
	}()
	h.sink.CaptureFailure(ctx, label, cause)
}

// -- boolean-style checks: false on timeout, never an error --

// TryPresent reports whether the element appears in the DOM within the wait.
func (h *Helper) TryPresent(ctx context.Context, l Locator, opts ...Option) bool {
	return h.try(ctx, l, ConditionPresent, opts)
}

// TryVisible reports whether the element becomes visible within the wait.
func (h *Helper) TryVisible(ctx context.Context, l Locator, opts ...Option) bool {
	return h.try(ctx, l, ConditionVisible, opts)
}

// TryClickable reports whether the element becomes clickable within the wait.
func (h *Helper) TryClickable(ctx context.Context, l Locator, opts ...Option) bool {
	return h.try(ctx, l, ConditionClickable, opts)
}

func (h *Helper) try(ctx context.Context, l Locator, cond Condition, opts []Option) bool {
	s, err := h.apply(cond, opts)
	if err != nil {
		h.logger.Warn("Invalid wait options; treating check as failed.", zap.Error(err))
		return false
	}
	ok := h.pollPredicate(ctx, s.condition.predicateJS(l), s.timeout)
	if !ok {
		h.logger.Debug("Condition not met within timeout.",
			zap.String("locator", l.String()),
			zap.String("condition", string(s.condition)),
			zap.Duration("timeout", s.timeout))
	}
	return ok
}

// TryTextPresent reports whether the element contains the text within the wait.
func (h *Helper) TryTextPresent(ctx context.Context, l Locator, text string, opts ...Option) bool {
	s, err := h.apply(ConditionPresent, opts)
	if err != nil {
		h.logger.Warn("Invalid wait options; treating check as failed.", zap.Error(err))
		return false
	}
	return h.pollPredicate(ctx, textPredicateJS(l, text), s.timeout)
}

// TryURLContains reports whether the page URL contains the fragment within
// the wait.
func (h *Helper) TryURLContains(ctx context.Context, fragment string, opts ...Option) bool {
	s, err := h.apply(ConditionPresent, opts)
	if err != nil {
		return false
	}
	return h.pollPredicate(ctx, urlContainsPredicateJS(fragment), s.timeout)
}

// TryNotPresent reports whether the element leaves the DOM within the wait.
func (h *Helper) TryNotPresent(ctx context.Context, l Locator, opts ...Option) bool {
	s, err := h.apply(ConditionPresent, opts)
	if err != nil {
		return false
	}
	return h.pollPredicate(ctx, absencePredicateJS(l, true), s.timeout)
}

// TryNotVisible reports whether the element stops being visible within the
// wait. An element that was never present counts as not visible.
func (h *Helper) TryNotVisible(ctx context.Context, l Locator, opts ...Option) bool {
	s, err := h.apply(ConditionPresent, opts)
	if err != nil {
		return false
	}
	return h.pollPredicate(ctx, absencePredicateJS(l, false), s.timeout)
}

// -- element-returning checks: ElementNotFound on timeout, sink notified --

// WaitFor blocks until the locator satisfies its condition (default:
// present) and returns a re-querying element handle. On timeout it raises
// ElementNotFound carrying the locator and the timeout that elapsed, and
// notifies the failure sink.
func (h *Helper) WaitFor(ctx context.Context, l Locator, opts ...Option) (*Element, error) {
	s, err := h.apply(ConditionPresent, opts)
	if err != nil {
		return nil, err
	}
	return h.waitResolved(ctx, l, s, "wait_for")
}

func (h *Helper) waitResolved(ctx context.Context, l Locator, s settings, label string) (*Element, error) {
	if h.pollPredicate(ctx, s.condition.predicateJS(l), s.timeout) {
		return &Element{h: h, loc: l}, nil
	}

	desc := s.description
	if desc == "" {
		desc = l.String()
	}
	nfErr := errdefs.NewElementNotFound(desc, h.currentURLOrDefault(ctx), l.String(), s.timeout).
		WithDetail("condition", string(s.condition))
	h.logger.Warn("Element wait timed out.",
		zap.String("locator", l.String()),
		zap.String("condition", string(s.condition)),
		zap.Duration("timeout", s.timeout))
	h.notifyFailure(ctx, label, nfErr)
	return nil, nfErr
}

// FindByTestID waits for the element carrying the data-testid.
func (h *Helper) FindByTestID(ctx context.Context, id string, opts ...Option) (*Element, error) {
	s, err := h.apply(ConditionClickable, opts)
	if err != nil {
		return nil, err
	}
	if s.description == "" {
		s.description = fmt.Sprintf("test id %q", id)
	}
	return h.waitResolved(ctx, ByTestID(id), s, "find_by_test_id")
}

// FindByAriaLabel waits for the element carrying the aria-label.
func (h *Helper) FindByAriaLabel(ctx context.Context, label string, opts ...Option) (*Element, error) {
	s, err := h.apply(ConditionClickable, opts)
	if err != nil {
		return nil, err
	}
	if s.description == "" {
		s.description = fmt.Sprintf("aria label %q", label)
	}
	return h.waitResolved(ctx, ByAriaLabel(label), s, "find_by_aria_label")
}

// FindByVisibleText waits for the element rendering the given text. Exact
// matching is the default; WithSubstringMatch relaxes it, WithTag narrows
// the candidate tags.
func (h *Helper) FindByVisibleText(ctx context.Context, text string, opts ...Option) (*Element, error) {
	s, err := h.apply(ConditionClickable, opts)
	if err != nil {
		return nil, err
	}
	if s.description == "" {
		s.description = fmt.Sprintf("visible text %q", text)
	}
	return h.waitResolved(ctx, ByVisibleText(s.tag, text, s.exact), s, "find_by_visible_text")
}

// FindByPartialAttribute waits for an element whose attribute contains the
// fragment.
func (h *Helper) FindByPartialAttribute(ctx context.Context, attr, fragment string, opts ...Option) (*Element, error) {
	s, err := h.apply(ConditionClickable, opts)
	if err != nil {
		return nil, err
	}
	if s.description == "" {
		s.description = fmt.Sprintf("attribute %s containing %q", attr, fragment)
	}
	return h.waitResolved(ctx, ByPartialAttribute(s.tag, attr, fragment), s, "find_by_partial_attribute")
}

// -- element handle --

// Element is a located element. It stores the locator, never a node handle:
// every operation re-queries, so it cannot go stale.
type Element struct {
	h   *Helper
	loc Locator
}

// Locator returns the locator the element was found with.
func (e *Element) Locator() Locator { return e.loc }

// Click clicks the element, re-waiting for clickability first.
func (e *Element) Click(ctx context.Context, opts ...Option) error {
	return e.h.Click(ctx, e.loc, opts...)
}

// Text returns the element's textContent.
func (e *Element) Text(ctx context.Context) (string, error) {
	var out string
	expr := fmt.Sprintf(`(() => {
	const el = %s;
	return el ? (el.textContent || '') : '';
})()`, e.loc.queryJS())
	if err := e.h.page.Eval(ctx, expr, &out); err != nil {
		return "", errdefs.NewActionFailed("read_text", e.loc.String(), e.h.currentURLOrDefault(ctx), err)
	}
	return out, nil
}

// Attribute returns the named attribute, or "" when absent.
func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	var out string
	expr := fmt.Sprintf(`(() => {
	const el = %s;
	return el ? (el.getAttribute(%s) || '') : '';
})()`, e.loc.queryJS(), jsString(name))
	if err := e.h.page.Eval(ctx, expr, &out); err != nil {
		return "", errdefs.NewActionFailed("read_attribute", e.loc.String(), e.h.currentURLOrDefault(ctx), err)
	}
	return out, nil
}

// -- debug sink adapter --

type debugSink struct {
	helper *debug.Helper
	src    debug.Source
}

// NewDebugSink adapts the artifact capture helper into a FailureSink.
func NewDebugSink(h *debug.Helper, src debug.Source) FailureSink {
	return &debugSink{helper: h, src: src}
}

func (d *debugSink) CaptureFailure(ctx context.Context, label string, cause error) {
	d.helper.CaptureAll(ctx, label, cause.Error(), d.src)
}
