package cli

import (
	"context"
	"fmt"

	"github.com/aimylabs/aimy/internal/config"
	"github.com/aimylabs/aimy/internal/version"
	"github.com/aimylabs/aimy/internal/webhook"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show AIMY status and webhook reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("AIMY %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			env, err := openEnv()
			if err != nil {
				fmt.Printf("Storage: error: %v\n", err)
				return nil
			}
			defer env.Close()

			target, terr := resolveWebhookTarget(env.cfg, env.settings)
			switch {
			case terr != nil:
				fmt.Printf("Webhook: ongeldig (%v)\n", terr)
			case target == "":
				fmt.Println("Webhook: demo-modus (geen URL ingesteld)")
			default:
				res := webhook.NewProber(log).Ping(context.Background(),
					target, env.settings.AuthHeader, env.settings.AuthValue)
				switch {
				case res.OK:
					fmt.Printf("Webhook: bereikbaar (%s, HTTP %d via %s)\n", target, res.Status, res.Method)
				case res.Timeout:
					fmt.Printf("Webhook: timeout (%s)\n", target)
				case res.Status > 0:
					fmt.Printf("Webhook: HTTP %d (%s)\n", res.Status, target)
				default:
					fmt.Printf("Webhook: niet bereikbaar (%s)\n", target)
				}
			}

			if env.cfg.Ingest.BaseURL != "" {
				fmt.Printf("Ingest:  %s\n", env.cfg.Ingest.BaseURL)
			} else {
				fmt.Println("Ingest:  (niet ingesteld, uploads blijven lokaal)")
			}

			sess := env.restoreSession()
			pc := sess.Prechat()
			intake := "onvolledig"
			if pc.Ready {
				intake = pc.SerialNumber
			}
			fmt.Printf("Sessie:  chat=%s berichten=%d documenten=%d intake=%s\n",
				sess.ChatID(), len(sess.Messages()), len(sess.Docs()), intake)

			entries := env.store.LoadChatHistory()
			archived := 0
			for _, e := range entries {
				if e.Archived {
					archived++
				}
			}
			fmt.Printf("Historie: %d gesprekken (%d gearchiveerd)\n", len(entries), archived)

			issues := config.Validate(&env.cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}
}
