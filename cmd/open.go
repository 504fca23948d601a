// -- cmd/open.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crealab/webpilot/internal/browser"
	"github.com/crealab/webpilot/internal/debug"
	"github.com/crealab/webpilot/internal/observability"
)

var (
	openWaitFor       string
	openCondition     string
	openDumpArtifacts bool
)

// openCmd navigates to a URL and optionally waits for an element, capturing
// failure artifacts when the wait does not resolve. It is the smoke-test
// surface for a configured browser profile.
var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Open a URL in the managed browser and optionally wait for an element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.GetLogger()
		ctx := cmd.Context()
		url := args[0]

		sess, err := browser.NewSession(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("starting browser session: %w", err)
		}
		defer func() {
			if cerr := sess.Close(); cerr != nil {
				log.Warn("Browser session close failed.", zap.Error(cerr))
			}
		}()

		artifacts := debug.NewHelper(cfg.Artifacts, log)
		if removed, err := artifacts.Screenshots().CleanupOld(cfg.Artifacts.RetentionDays); err != nil {
			log.Warn("Screenshot retention cleanup failed.", zap.Error(err))
		} else if removed > 0 {
			log.Info("Removed expired screenshots.", zap.Int("count", removed))
		}

		helper := browser.NewHelper(sess, cfg.Browser, log)
		helper.SetFailureSink(browser.NewDebugSink(artifacts, sess))

		if err := sess.Navigate(ctx, url); err != nil {
			if openDumpArtifacts {
				artifacts.CaptureAll(ctx, "open_navigate", err.Error(), sess)
			}
			return err
		}
		log.Info("Page loaded.", zap.String("url", url))

		if openWaitFor != "" {
			el, err := helper.WaitFor(ctx, browser.CSS(openWaitFor),
				browser.WithConditionName(openCondition),
				browser.WithDescription(openWaitFor))
			if err != nil {
				// The failure sink already captured artifacts for the wait.
				return err
			}
			text, terr := el.Text(ctx)
			if terr != nil {
				log.Warn("Element found but text read failed.", zap.Error(terr))
			} else {
				log.Info("Element resolved.",
					zap.String("selector", openWaitFor),
					zap.String("text", text))
			}
		}

		if openDumpArtifacts {
			set := artifacts.CaptureAll(ctx, "open_snapshot", "manual artifact dump", sess)
			for kind, path := range set {
				if path != "" {
					log.Info("Artifact written.", zap.String("kind", kind), zap.String("path", path))
				}
			}
		}

		title, err := sess.Title(ctx)
		if err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), title)
		}
		return nil
	},
}

func init() {
	openCmd.Flags().StringVar(&openWaitFor, "wait-for", "", "CSS selector to wait for after navigation")
	openCmd.Flags().StringVar(&openCondition, "condition", "clickable", "wait condition: present, visible or clickable")
	openCmd.Flags().BoolVar(&openDumpArtifacts, "dump-artifacts", false, "capture the full artifact set after the page settles")
	rootCmd.AddCommand(openCmd)
}
