// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crealab/webpilot/internal/browser/stealth"
	"github.com/crealab/webpilot/internal/config"
	"github.com/crealab/webpilot/internal/errdefs"
)

// Session owns one browser process and one tab. It implements Page for the
// interaction helper and debug.Source for artifact capture. A session is
// single-threaded: one goroutine drives it, operations block until done.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    *config.Config

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	console *consoleBuffer

	mu       sync.Mutex
	isClosed bool
}

// NewSession launches the browser and connects a tab. The anti-detection
// flag bundle and the identity override scripts are applied here when
// configured; the config layer has already warned about their interaction.
func NewSession(parentCtx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	log := logger.Named("session").With(zap.String("session_id", sessionID))

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, buildAllocatorOptions(cfg.Browser)...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          sessionID,
		logger:      log,
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		console:     newConsoleBuffer(consoleBufferMax),
	}
	s.attachConsoleListener()

	var tasks chromedp.Tasks
	if cfg.Browser.AvoidDetection {
		persona := stealth.Persona{
			UserAgent: cfg.Browser.UserAgent,
			Languages: []string{"en-US", "en"},
		}
		tasks = append(tasks, stealth.Apply(persona, log)...)
	}

	// The first Run starts the browser process and connects CDP.
	if err := chromedp.Run(ctx, tasks); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	log.Info("Browser session started.",
		zap.Bool("headless", cfg.Browser.Headless),
		zap.Bool("avoid_detection", cfg.Browser.AvoidDetection))
	return s, nil
}

// buildAllocatorOptions maps the browser config onto Chrome launch flags.
// The avoid-detection bundle intentionally mirrors the legacy hardening set,
// including --disable-javascript.
func buildAllocatorOptions(bc config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox,
		chromedp.WindowSize(bc.WindowWidth, bc.WindowHeight),
		chromedp.Flag("disable-dev-shm-usage", true),
	}

	if bc.BinaryPath != "" {
		opts = append(opts, chromedp.ExecPath(bc.BinaryPath))
	}
	if bc.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(bc.UserDataDir))
		if bc.ProfileName != "" {
			opts = append(opts, chromedp.Flag("profile-directory", bc.ProfileName))
		}
	}
	if bc.Headless {
		opts = append(opts, chromedp.Headless, chromedp.DisableGPU)
	}

	if bc.AvoidDetection {
		opts = append(opts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("enable-automation", false),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-plugins", true),
			chromedp.Flag("disable-images", true),
			chromedp.Flag("disable-javascript", true),
			chromedp.Flag("disable-web-security", true),
			chromedp.Flag("allow-running-insecure-content", true),
			chromedp.Flag("disable-features", "VizDisplayCompositor"),
		)
		if bc.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(bc.UserAgent))
		}
	}

	// Extra args from config, key=value or bare flags.
	for _, arg := range bc.Args {
		arg = strings.TrimPrefix(arg, "--")
		key, value, found := strings.Cut(arg, "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Context returns the session lifecycle context.
func (s *Session) Context() context.Context { return s.ctx }

// run executes chromedp actions, ensuring they respect both the session
// lifetime and the incoming request context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads a URL and waits for the document body within the configured
// page-load timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	timeout := s.cfg.Browser.PageLoadTimeout
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Debug("Navigating.", zap.String("url", url))
	err := s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return errdefs.NewNavigation(url, "", "", timeout, err)
	}
	return nil
}

// NavigateAndVerify navigates and then checks that the resulting title
// contains the expected fragment, raising a Navigation error on mismatch.
func (s *Session) NavigateAndVerify(ctx context.Context, url, expectTitle string) error {
	if err := s.Navigate(ctx, url); err != nil {
		return err
	}
	if expectTitle == "" {
		return nil
	}

	title, err := s.Title(ctx)
	if err != nil {
		return errdefs.NewNavigation(url, expectTitle, "", s.cfg.Browser.PageLoadTimeout, err)
	}
	if !strings.Contains(title, expectTitle) {
		return errdefs.NewNavigation(url, expectTitle, title, s.cfg.Browser.PageLoadTimeout, nil)
	}
	return nil
}

// Eval evaluates a JS expression. A nil out discards the result.
func (s *Session) Eval(ctx context.Context, expr string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return s.run(ctx, chromedp.Evaluate(expr, out))
}

// Click dispatches a click on the first match.
func (s *Session) Click(ctx context.Context, l Locator) error {
	return s.run(ctx, chromedp.Click(l.Value, chromedpBy(l)))
}

// SendKeys types into the first match, optionally clearing it first.
func (s *Session) SendKeys(ctx context.Context, l Locator, text string, clearFirst bool) error {
	var tasks chromedp.Tasks
	if clearFirst {
		tasks = append(tasks, chromedp.Clear(l.Value, chromedpBy(l)))
	}
	tasks = append(tasks, chromedp.SendKeys(l.Value, text, chromedpBy(l)))
	return s.run(ctx, tasks)
}

// CurrentURL returns the tab's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// PageSource returns the full rendered document.
func (s *Session) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// CaptureScreenshot grabs a PNG of the viewport.
func (s *Session) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ConsoleLog returns the formatted console entries collected so far.
func (s *Session) ConsoleLog(_ context.Context) ([]string, error) {
	return s.console.snapshot(), nil
}

// CloseCurrentTab closes the tab and returns the URL it was on.
func (s *Session) CloseCurrentTab(ctx context.Context) (string, error) {
	url, err := s.CurrentURL(ctx)
	if err != nil {
		url = "unknown"
	}
	if err := s.run(ctx, page.Close()); err != nil {
		return url, fmt.Errorf("closing tab: %w", err)
	}
	s.logger.Debug("Closed tab.", zap.String("url", url))
	return url, nil
}

// Close terminates the browser session gracefully. Safe to call twice; the
// second call is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		s.logger.Debug("Session already closed.")
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Info("Closing browser session.")
	if err := chromedp.Cancel(s.ctx); err != nil {
		s.logger.Debug("Graceful browser shutdown failed; forcing.", zap.Error(err))
	}
	s.cancel()
	s.allocCancel()
	return nil
}

// chromedpBy maps a locator strategy to the matching chromedp query option.
func chromedpBy(l Locator) chromedp.QueryOption {
	if l.Strategy == ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// combineContext derives a context that is cancelled when either parent is.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
