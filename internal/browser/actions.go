// File: internal/browser/actions.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/crealab/webpilot/internal/errdefs"
)

// Sentinel errors for text-file insertion. Both are raised before any
// element wait begins so a bad input path fails in milliseconds, not after a
// full timeout.
var (
	ErrTextFileNotFound = errors.New("text file not found")
	ErrTextFileEncoding = errors.New("text file is not valid UTF-8")
)

var validScrollBehaviors = map[string]bool{"auto": true, "smooth": true}
var validScrollBlocks = map[string]bool{"start": true, "center": true, "end": true, "nearest": true}

// Click waits for the element (default condition: clickable) and clicks it.
// A click that fails after the element was located is ActionFailed, distinct
// from the ElementNotFound raised when the wait itself times out.
func (h *Helper) Click(ctx context.Context, l Locator, opts ...Option) error {
	s, err := h.apply(ConditionClickable, opts)
	if err != nil {
		return err
	}
	if _, err := h.waitResolved(ctx, l, s, "click"); err != nil {
		return err
	}

	if err := h.page.Click(ctx, l); err != nil {
		aerr := errdefs.NewActionFailed("click", l.String(), h.currentURLOrDefault(ctx), err)
		h.logger.Warn("Click failed after element was located.",
			zap.String("locator", l.String()), zap.Error(err))
		h.notifyFailure(ctx, "click", aerr)
		return aerr
	}
	h.logger.Debug("Clicked element.", zap.String("locator", l.String()))
	return nil
}

// TypeText waits for the element (default condition: visible) and types into
// it, clearing the current value first unless WithClear(false) is given.
func (h *Helper) TypeText(ctx context.Context, l Locator, text string, opts ...Option) error {
	s, err := h.apply(ConditionVisible, opts)
	if err != nil {
		return err
	}
	clear := true
	if s.clearSet {
		clear = s.clear
	}
	if _, err := h.waitResolved(ctx, l, s, "type_text"); err != nil {
		return err
	}

	if err := h.page.SendKeys(ctx, l, text, clear); err != nil {
		aerr := errdefs.NewActionFailed("type_text", l.String(), h.currentURLOrDefault(ctx), err)
		h.logger.Warn("Typing failed after element was located.",
			zap.String("locator", l.String()), zap.Error(err))
		h.notifyFailure(ctx, "type_text", aerr)
		return aerr
	}
	h.logger.Debug("Typed into element.",
		zap.String("locator", l.String()), zap.Int("chars", len(text)))
	return nil
}

// ScrollIntoView waits for the element (default condition: visible) and
// scrolls it into view. Behavior and block alignment are validated before
// the wait, so an invalid value cannot burn a timeout first.
func (h *Helper) ScrollIntoView(ctx context.Context, l Locator, opts ...Option) error {
	s, err := h.apply(ConditionVisible, opts)
	if err != nil {
		return err
	}
	behavior := s.behavior
	if behavior == "" {
		behavior = "smooth"
	}
	block := s.block
	if block == "" {
		block = "center"
	}
	if !validScrollBehaviors[behavior] {
		return fmt.Errorf("invalid scroll behavior %q (valid: auto, smooth)", behavior)
	}
	if !validScrollBlocks[block] {
		return fmt.Errorf("invalid scroll block %q (valid: start, center, end, nearest)", block)
	}

	if _, err := h.waitResolved(ctx, l, s, "scroll_into_view"); err != nil {
		return err
	}

	var ok bool
	expr := fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	el.scrollIntoView({behavior: %s, block: %s});
	return true;
})()`, l.queryJS(), jsString(behavior), jsString(block))
	if err := h.page.Eval(ctx, expr, &ok); err != nil || !ok {
		if err == nil {
			err = errors.New("element disappeared before scrolling")
		}
		aerr := errdefs.NewActionFailed("scroll_into_view", l.String(), h.currentURLOrDefault(ctx), err)
		h.notifyFailure(ctx, "scroll_into_view", aerr)
		return aerr
	}
	return nil
}

// InsertTextFromFile reads a UTF-8 text file and types its content into the
// element (default condition: clickable). File problems are reported before
// any element wait: a missing file wraps ErrTextFileNotFound, undecodable
// content wraps ErrTextFileEncoding.
func (h *Helper) InsertTextFromFile(ctx context.Context, path string, l Locator, opts ...Option) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrTextFileNotFound, path)
		}
		return fmt.Errorf("reading text file %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: %s", ErrTextFileEncoding, path)
	}

	opts = append([]Option{WithCondition(ConditionClickable)}, opts...)
	return h.TypeText(ctx, l, string(data), opts...)
}

// ExecuteScript evaluates arbitrary JS, unmarshaling the result into out
// (which may be nil for fire-and-forget scripts).
func (h *Helper) ExecuteScript(ctx context.Context, script string, out any) error {
	if err := h.page.Eval(ctx, script, out); err != nil {
		return errdefs.NewActionFailed("execute_script", "", h.currentURLOrDefault(ctx), err)
	}
	return nil
}
