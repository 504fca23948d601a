// File: internal/browser/stealth/stealth.go
package stealth

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

//go:embed overrides.js
var overridesScript string

// Persona defines the browser identity to present.
type Persona struct {
	UserAgent string
	Languages []string
}

// DefaultPersona provides a realistic default browser profile.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	Languages: []string{"en-US", "en"},
}

// Apply constructs the CDP actions that mask the automation fingerprints:
// a User-Agent override, the persistent identity override script, and an
// Accept-Language header matching the persona.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	if p.UserAgent == "" {
		p.UserAgent = DefaultPersona.UserAgent
	}
	if len(p.Languages) == 0 {
		p.Languages = DefaultPersona.Languages
	}
	logger.Debug("Applying identity overrides.", zap.String("user_agent", p.UserAgent))

	return chromedp.Tasks{
		emulation.SetUserAgentOverride(p.UserAgent),

		// AddScriptToEvaluateOnNewDocument returns two values, so it needs an
		// ActionFunc wrapper to satisfy the chromedp.Action interface.
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(overridesScript).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to inject identity overrides: %w", err)
			}
			return nil
		}),

		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": acceptLanguage(p.Languages),
		}),
	}
}

func acceptLanguage(langs []string) string {
	if len(langs) == 1 {
		return langs[0]
	}
	return fmt.Sprintf("%s,%s;q=0.9", langs[0], strings.Join(langs[1:], ","))
}
