// File: internal/debug/screenshot_test.go
package debug

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDriver struct {
	png []byte
	err error
}

func (f *fakeDriver) CaptureScreenshot(context.Context) ([]byte, error) {
	return f.png, f.err
}

func newTestManager(t *testing.T) *ScreenshotManager {
	t.Helper()
	m := NewScreenshotManager(t.TempDir(), zap.NewNop())
	m.now = func() time.Time { return time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC) }
	m.runTool = func(context.Context, string, ...string) error { return errors.New("tool unavailable") }
	m.grabScreen = func() (image.Image, error) { return nil, errors.New("no display") }
	return m
}

func TestCascadeFallsBackToLibraryGrab(t *testing.T) {
	m := newTestManager(t)
	m.grabScreen = func() (image.Image, error) {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.Set(0, 0, color.White)
		return img, nil
	}

	path := m.CaptureFailure(context.Background(), "login", "20260830_090000", nil)
	require.NotEmpty(t, path)
	assert.Equal(t, ".png", filepath.Ext(path))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(0))
}

func TestCascadeFallsBackToDriver(t *testing.T) {
	m := newTestManager(t)
	drv := &fakeDriver{png: []byte("\x89PNG pretend")}

	path := m.CaptureFailure(context.Background(), "login", "20260830_090000", drv)
	require.NotEmpty(t, path)
	assert.Equal(t, ".png", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, drv.png, data)
}

func TestCascadeBottomsOutInPlaceholder(t *testing.T) {
	m := newTestManager(t)
	drv := &fakeDriver{err: errors.New("target crashed")}

	path := m.CaptureFailure(context.Background(), "submit order", "20260830_090000", drv)
	require.NotEmpty(t, path)
	assert.Equal(t, ".txt", filepath.Ext(path))
	assert.Equal(t, "submit_order_screenshot_20260830_090000.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "failed on every fallback")
	assert.Contains(t, content, "native tool:")
	assert.Contains(t, content, "display grab:")
	assert.Contains(t, content, "target crashed")
}

func TestNativeToolSuccessShortCircuits(t *testing.T) {
	m := newTestManager(t)
	var libraryTried bool
	m.grabScreen = func() (image.Image, error) {
		libraryTried = true
		return nil, errors.New("should not reach")
	}
	m.runTool = func(_ context.Context, name string, args ...string) error {
		// The tool writes the file its last argument names.
		return os.WriteFile(args[len(args)-1], []byte("fake png"), 0o644)
	}

	path := m.CaptureFailure(context.Background(), "ok", "20260830_090000", nil)
	require.NotEmpty(t, path)
	assert.Equal(t, ".png", filepath.Ext(path))
	assert.False(t, libraryTried)
}

func TestCleanupOld(t *testing.T) {
	m := newTestManager(t)

	oldFile := filepath.Join(m.dir, "ancient_screenshot.png")
	newFile := filepath.Join(m.dir, "recent_screenshot.png")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("new"), 0o644))

	stale := m.now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))
	fresh := m.now().AddDate(0, 0, -1)
	require.NoError(t, os.Chtimes(newFile, fresh, fresh))

	removed, err := m.CleanupOld(7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newFile)
	assert.NoError(t, err)
}

func TestCleanupOldDisabledAndMissingDir(t *testing.T) {
	m := newTestManager(t)

	removed, err := m.CleanupOld(0)
	require.NoError(t, err)
	assert.Zero(t, removed)

	m.dir = filepath.Join(t.TempDir(), "never-created")
	removed, err = m.CleanupOld(7)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
