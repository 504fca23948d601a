// File: internal/debug/debug.go
package debug

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/crealab/webpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Artifact kinds. Every CaptureAll result maps each of these to a written
// file path, or "" when that particular capture failed.
const (
	ArtifactScreenshot  = "screenshot"
	ArtifactPageSource  = "page_source"
	ArtifactConsoleLogs = "console_logs"
	ArtifactSystemInfo  = "system_info"
	ArtifactErrorInfo   = "error_info"
)

// ArtifactSet maps artifact kind to the path it was written to.
type ArtifactSet map[string]string

// Source is the minimal view of a browser session the capture helper needs.
// A nil Source is legal: page-derived artifacts are skipped and the rest are
// still captured.
type Source interface {
	CurrentURL(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	ConsoleLog(ctx context.Context) ([]string, error)
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

// Helper writes failure artifacts. It is deliberately paranoid: no capture
// path is allowed to return an error or panic out of CaptureAll, because it
// runs while the caller is already handling a failure.
type Helper struct {
	cfg    config.ArtifactsConfig
	logger *zap.Logger
	shots  *ScreenshotManager

	now func() time.Time
}

// NewHelper creates a capture helper rooted at the configured artifact dirs.
func NewHelper(cfg config.ArtifactsConfig, logger *zap.Logger) *Helper {
	return &Helper{
		cfg:    cfg,
		logger: logger.Named("debug"),
		shots:  NewScreenshotManager(cfg.ScreenshotsDir, logger),
		now:    time.Now,
	}
}

// Screenshots exposes the screenshot manager for retention maintenance.
func (h *Helper) Screenshots() *ScreenshotManager { return h.shots }

// CaptureAll collects the full artifact set for a failure. The label names
// the failing operation and becomes part of every filename. The error_info
// artifact is always attempted, so a successful run never yields an empty
// set.
func (h *Helper) CaptureAll(ctx context.Context, label, errMsg string, src Source) ArtifactSet {
	ts := h.now().Format("20060102_150405")
	label = sanitizeFilename(label)
	if label == "" {
		label = "unknown"
	}

	set := ArtifactSet{
		ArtifactScreenshot:  "",
		ArtifactPageSource:  "",
		ArtifactConsoleLogs: "",
		ArtifactSystemInfo:  "",
		ArtifactErrorInfo:   "",
	}

	if err := os.MkdirAll(h.cfg.Dir, 0o755); err != nil {
		h.logger.Error("Cannot create artifact directory; only logging the failure.",
			zap.String("dir", h.cfg.Dir), zap.Error(err))
		return set
	}

	set[ArtifactErrorInfo] = h.capture(ArtifactErrorInfo, func() (string, error) {
		return h.writeErrorInfo(ctx, label, ts, errMsg, src)
	})
	set[ArtifactScreenshot] = h.capture(ArtifactScreenshot, func() (string, error) {
		return h.shots.CaptureFailure(ctx, label, ts, src), nil
	})
	set[ArtifactPageSource] = h.capture(ArtifactPageSource, func() (string, error) {
		return h.writePageSource(ctx, label, ts, src)
	})
	set[ArtifactConsoleLogs] = h.capture(ArtifactConsoleLogs, func() (string, error) {
		return h.writeConsoleLogs(ctx, label, ts, src)
	})
	set[ArtifactSystemInfo] = h.capture(ArtifactSystemInfo, func() (string, error) {
		return h.writeSystemInfo(ctx, label, ts)
	})

	h.logger.Info("Debug artifacts captured.",
		zap.String("context", label),
		zap.Int("written", set.countWritten()))
	return set
}

// capture isolates one artifact: an error or panic in the capture function
// degrades to an empty path, never outward.
func (h *Helper) capture(kind string, fn func() (string, error)) (path string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Artifact capture panicked.",
				zap.String("artifact", kind), zap.Any("panic", r))
			path = ""
		}
	}()

	path, err := fn()
	if err != nil {
		h.logger.Warn("Artifact capture failed.",
			zap.String("artifact", kind), zap.Error(err))
		return ""
	}
	return path
}

func (h *Helper) artifactPath(label, kind, ts, ext string) string {
	name := fmt.Sprintf("%s_%s_%s.%s", label, kind, ts, ext)
	return filepath.Join(h.cfg.Dir, sanitizeFilename(name))
}

func (h *Helper) writeErrorInfo(ctx context.Context, label, ts, errMsg string, src Source) (string, error) {
	url := "unavailable"
	if src != nil {
		if u, err := src.CurrentURL(ctx); err == nil && u != "" {
			url = u
		}
	}

	info := map[string]string{
		"timestamp":   h.now().Format(time.RFC3339),
		"context":     label,
		"error":       errMsg,
		"current_url": url,
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", err
	}

	path := h.artifactPath(label, ArtifactErrorInfo, ts, "json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (h *Helper) writePageSource(ctx context.Context, label, ts string, src Source) (string, error) {
	if src == nil {
		return "", fmt.Errorf("no page source available")
	}
	html, err := src.PageSource(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching page source: %w", err)
	}

	path := h.artifactPath(label, ArtifactPageSource, ts, "html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (h *Helper) writeConsoleLogs(ctx context.Context, label, ts string, src Source) (string, error) {
	if src == nil {
		return "", fmt.Errorf("no console logs available")
	}
	entries, err := src.ConsoleLog(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching console logs: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}
	path := h.artifactPath(label, ArtifactConsoleLogs, ts, "json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (h *Helper) writeSystemInfo(ctx context.Context, label, ts string) (string, error) {
	snap := collectSystemInfo(ctx, h.cfg.Dir)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}
	path := h.artifactPath(label, ArtifactSystemInfo, ts, "json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s ArtifactSet) countWritten() int {
	n := 0
	for _, p := range s {
		if p != "" {
			n++
		}
	}
	return n
}

// sanitizeFilename makes a context label safe to embed in a filename.
// Spaces and path separators become underscores; characters that are invalid
// on common filesystems are dropped.
func sanitizeFilename(s string) string {
	s = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '|', '?', '*':
			return -1
		}
		return r
	}, s)
}
