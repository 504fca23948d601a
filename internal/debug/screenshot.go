// File: internal/debug/screenshot.go
package debug

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"

	"github.com/crealab/webpilot/internal/errdefs"
)

// DriverScreenshotter is the slice of Source the screenshot cascade needs.
type DriverScreenshotter interface {
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

// ScreenshotManager captures failure screenshots with a cascading fallback:
// a native OS tool first, then an in-process display grab, then the
// browser's own capture, and finally a placeholder text file that records
// why everything failed. It always produces a file path.
type ScreenshotManager struct {
	dir    string
	logger *zap.Logger

	now        func() time.Time
	grabScreen func() (image.Image, error)
	runTool    func(ctx context.Context, name string, args ...string) error
}

// NewScreenshotManager creates a manager writing into dir.
func NewScreenshotManager(dir string, logger *zap.Logger) *ScreenshotManager {
	return &ScreenshotManager{
		dir:    dir,
		logger: logger.Named("screenshot"),
		now:    time.Now,
		grabScreen: func() (image.Image, error) {
			if screenshot.NumActiveDisplays() == 0 {
				return nil, fmt.Errorf("no active displays")
			}
			return screenshot.CaptureDisplay(0)
		},
		runTool: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// CaptureFailure runs the cascade and returns the path of whatever file it
// managed to write. An empty string is returned only when even the
// placeholder could not be written.
func (m *ScreenshotManager) CaptureFailure(ctx context.Context, label, ts string, drv DriverScreenshotter) string {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		m.logger.Error("Cannot create screenshot directory.", zap.String("dir", m.dir), zap.Error(err))
		return ""
	}

	base := sanitizeFilename(fmt.Sprintf("%s_%s_%s", label, ArtifactScreenshot, ts))
	pngPath := filepath.Join(m.dir, base+".png")
	var failures []string

	if err := m.captureNative(ctx, pngPath); err == nil {
		return pngPath
	} else {
		failures = append(failures, fmt.Sprintf("native tool: %v", err))
		m.logger.Debug("Native screenshot tool failed.", zap.Error(err))
	}

	if err := m.captureLibrary(pngPath); err == nil {
		return pngPath
	} else {
		failures = append(failures, fmt.Sprintf("display grab: %v", err))
		m.logger.Debug("Library display grab failed.", zap.Error(err))
	}

	if drv != nil {
		if err := m.captureDriver(ctx, pngPath, drv); err == nil {
			return pngPath
		} else {
			failures = append(failures, fmt.Sprintf("browser capture: %v", err))
			m.logger.Debug("Browser screenshot failed.", zap.Error(err))
		}
	} else {
		failures = append(failures, "browser capture: no session")
	}

	return m.writePlaceholder(base, failures)
}

// captureNative shells out to the platform screenshot tool.
func (m *ScreenshotManager) captureNative(ctx context.Context, path string) error {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name, args = "screencapture", []string{"-x", path}
	case "linux":
		name, args = "scrot", []string{"--overwrite", path}
	default:
		return errdefs.NewDesktop("screen_capture", runtime.GOOS,
			fmt.Errorf("no native capture tool for this platform"))
	}

	if err := m.runTool(ctx, name, args...); err != nil {
		return errdefs.NewDesktop("screen_capture", name, err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		return errdefs.NewDesktop("screen_capture", name, fmt.Errorf("tool wrote no output"))
	}
	return nil
}

func (m *ScreenshotManager) captureLibrary(path string) error {
	img, err := m.grabScreen()
	if err != nil {
		return errdefs.NewDesktop("display_grab", "display 0", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func (m *ScreenshotManager) captureDriver(ctx context.Context, path string, drv DriverScreenshotter) error {
	data, err := drv.CaptureScreenshot(ctx)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("browser returned an empty screenshot")
	}
	return os.WriteFile(path, data, 0o644)
}

// writePlaceholder records the cascade's failures in a text file so the
// artifact set still points at something useful.
func (m *ScreenshotManager) writePlaceholder(base string, failures []string) string {
	path := filepath.Join(m.dir, base+".txt")
	var b strings.Builder
	b.WriteString("screenshot capture failed on every fallback\n")
	b.WriteString("captured_at: " + m.now().Format(time.RFC3339) + "\n")
	for _, f := range failures {
		b.WriteString("- " + f + "\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		m.logger.Error("Placeholder screenshot file could not be written.", zap.Error(err))
		return ""
	}
	m.logger.Warn("All screenshot fallbacks failed; wrote placeholder.", zap.String("path", path))
	return path
}

// CleanupOld removes screenshots and placeholders older than the retention
// window. Returns how many files were removed.
func (m *ScreenshotManager) CleanupOld(days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := m.now().AddDate(0, 0, -days)

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil {
				m.logger.Warn("Could not remove expired screenshot.",
					zap.String("file", entry.Name()), zap.Error(err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("Expired screenshots removed.", zap.Int("count", removed), zap.Int("days", days))
	}
	return removed, nil
}
