// File: internal/debug/debug_test.go
package debug

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crealab/webpilot/internal/config"
)

// fakeSource scripts every capture input. Any field left nil errors out,
// which conveniently also exercises the isolation paths.
type fakeSource struct {
	url     string
	html    string
	console []string
	png     []byte
	failAll bool
	panicky bool
}

func (f *fakeSource) CurrentURL(context.Context) (string, error) {
	if f.panicky {
		panic("source exploded")
	}
	if f.failAll {
		return "", errors.New("no url")
	}
	return f.url, nil
}

func (f *fakeSource) PageSource(context.Context) (string, error) {
	if f.panicky {
		panic("source exploded")
	}
	if f.failAll {
		return "", errors.New("no dom")
	}
	return f.html, nil
}

func (f *fakeSource) ConsoleLog(context.Context) ([]string, error) {
	if f.failAll {
		return nil, errors.New("no console")
	}
	return f.console, nil
}

func (f *fakeSource) CaptureScreenshot(context.Context) ([]byte, error) {
	if f.failAll || len(f.png) == 0 {
		return nil, errors.New("no screenshot")
	}
	return f.png, nil
}

// newTestHelper wires a Helper into a temp dir with all external capture
// rungs (native tool, display grab) stubbed to fail, so tests control the
// cascade through the fake source alone.
func newTestHelper(t *testing.T) *Helper {
	t.Helper()
	root := t.TempDir()
	h := NewHelper(config.ArtifactsConfig{
		Dir:            filepath.Join(root, "artifacts"),
		ScreenshotsDir: filepath.Join(root, "screenshots"),
		RetentionDays:  7,
	}, zap.NewNop())

	h.now = func() time.Time { return time.Date(2026, 8, 30, 12, 4, 5, 0, time.UTC) }
	h.shots.now = h.now
	h.shots.runTool = func(context.Context, string, ...string) error { return errors.New("tool unavailable") }
	h.shots.grabScreen = func() (image.Image, error) { return nil, errors.New("no display") }
	return h
}

func TestCaptureAllWritesFullSet(t *testing.T) {
	h := newTestHelper(t)
	src := &fakeSource{
		url:     "https://example.com/checkout",
		html:    "<html><body>hi</body></html>",
		console: []string{"[error] boom"},
		png:     []byte("\x89PNG fake"),
	}

	set := h.CaptureAll(context.Background(), "checkout click", "element not found", src)

	for _, kind := range []string{ArtifactErrorInfo, ArtifactScreenshot, ArtifactPageSource, ArtifactConsoleLogs, ArtifactSystemInfo} {
		assert.NotEmpty(t, set[kind], "artifact %s should have been written", kind)
		_, err := os.Stat(set[kind])
		assert.NoError(t, err, "artifact %s path should exist", kind)
	}

	// Deterministic naming: sanitized label, kind and timestamp.
	assert.Equal(t, "checkout_click_error_info_20260830_120405.json", filepath.Base(set[ArtifactErrorInfo]))
	assert.Equal(t, "checkout_click_screenshot_20260830_120405.png", filepath.Base(set[ArtifactScreenshot]))

	data, err := os.ReadFile(set[ArtifactErrorInfo])
	require.NoError(t, err)
	assert.Contains(t, string(data), "element not found")
	assert.Contains(t, string(data), "https://example.com/checkout")
}

func TestCaptureAllNeverFailsOutward(t *testing.T) {
	t.Run("source errors on everything", func(t *testing.T) {
		h := newTestHelper(t)
		set := h.CaptureAll(context.Background(), "broken", "boom", &fakeSource{failAll: true})

		// error_info is still written, with the URL marked unavailable.
		require.NotEmpty(t, set[ArtifactErrorInfo])
		data, err := os.ReadFile(set[ArtifactErrorInfo])
		require.NoError(t, err)
		assert.Contains(t, string(data), "unavailable")

		assert.Empty(t, set[ArtifactPageSource])
		assert.Empty(t, set[ArtifactConsoleLogs])
		// The screenshot cascade bottoms out in a placeholder, not "".
		assert.True(t, strings.HasSuffix(set[ArtifactScreenshot], ".txt"))
	})

	t.Run("source panics", func(t *testing.T) {
		h := newTestHelper(t)
		var set ArtifactSet
		assert.NotPanics(t, func() {
			set = h.CaptureAll(context.Background(), "panicky", "boom", &fakeSource{panicky: true})
		})
		assert.Empty(t, set[ArtifactPageSource])
	})

	t.Run("nil source", func(t *testing.T) {
		h := newTestHelper(t)
		set := h.CaptureAll(context.Background(), "no session", "driver never started", nil)
		assert.NotEmpty(t, set[ArtifactErrorInfo])
		assert.NotEmpty(t, set[ArtifactSystemInfo])
		assert.Empty(t, set[ArtifactPageSource])
	})
}

func TestCaptureAllAlwaysIncludesErrorInfo(t *testing.T) {
	h := newTestHelper(t)
	set := h.CaptureAll(context.Background(), "login", "timeout", &fakeSource{url: "https://a.test"})
	_, ok := set[ArtifactErrorInfo]
	assert.True(t, ok)
	assert.NotEmpty(t, set[ArtifactErrorInfo])
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"with spaces here", "with_spaces_here"},
		{"path/to\\thing", "path_to_thing"},
		{`bad<>:"|?*chars`, "badchars"},
		{"mixed bag: a/b?c", "mixed_bag_a_bc"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeFilename(tc.in))
		})
	}
}

func TestSystemSnapshotBasics(t *testing.T) {
	snap := collectSystemInfo(context.Background(), t.TempDir())
	assert.NotEmpty(t, snap.Timestamp)
	assert.NotEmpty(t, snap.GoOS)
	assert.Greater(t, snap.NumCPU, 0)
}

func TestArtifactSetCountWritten(t *testing.T) {
	set := ArtifactSet{"a": "x", "b": "", "c": "y"}
	assert.Equal(t, 2, set.countWritten())
}

func TestCaptureAllUnwritableDir(t *testing.T) {
	h := newTestHelper(t)
	// Point the artifact dir at a path under a regular file.
	block := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(block, []byte("x"), 0o644))
	h.cfg.Dir = filepath.Join(block, "nested")

	var set ArtifactSet
	assert.NotPanics(t, func() {
		set = h.CaptureAll(context.Background(), "ctx", fmt.Sprintf("err %d", 1), nil)
	})
	assert.Empty(t, set[ArtifactErrorInfo])
}
