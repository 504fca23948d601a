// File: internal/browser/stealth/stealth_test.go
package stealth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOverridesScriptEmbedded(t *testing.T) {
	require.NotEmpty(t, overridesScript)

	// The three fingerprints the overrides must mask.
	assert.Contains(t, overridesScript, "webdriver")
	assert.Contains(t, overridesScript, "plugins")
	assert.Contains(t, overridesScript, "languages")
	assert.Contains(t, overridesScript, "'use strict'")
}

func TestApplyTaskCount(t *testing.T) {
	tasks := Apply(DefaultPersona, zap.NewNop())
	// UA override, script injection, headers.
	assert.Len(t, tasks, 3)
}

func TestApplyFillsEmptyPersona(t *testing.T) {
	tasks := Apply(Persona{}, zap.NewNop())
	assert.Len(t, tasks, 3)
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "en-US,en;q=0.9", acceptLanguage([]string{"en-US", "en"}))
	assert.Equal(t, "de-DE", acceptLanguage([]string{"de-DE"}))
	assert.Equal(t, "en-US,en,fr;q=0.9", acceptLanguage([]string{"en-US", "en", "fr"}))
}
