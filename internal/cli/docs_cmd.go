package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/aimylabs/aimy/internal/domain"
	"github.com/aimylabs/aimy/internal/ingest"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage machine documents for the current session",
	}

	cmd.AddCommand(newDocsListCmd())
	cmd.AddCommand(newDocsAddCmd())
	cmd.AddCommand(newDocsRemoveCmd())

	return cmd
}

func newDocsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the loaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			printDocs(env.restoreSession().Docs())
			return nil
		},
	}
}

func newDocsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Upload documents to the ingest service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sess := env.restoreSession()
			client := ingest.NewClient(env.cfg.Ingest.BaseURL, log)

			var failed bool
			for _, path := range args {
				doc, err := client.Upload(ctx, path, sess.ChatID())
				if err != nil {
					fmt.Println(err)
					failed = true
					continue
				}
				sess.AddDoc(doc)
				fmt.Printf("%s  %s  %s  [%s]\n",
					doc.ID, doc.Name, humanize.Bytes(uint64(doc.Size)), ingest.StatusLabel(doc.Status))
			}

			persistSession(env, sess)
			if failed {
				return fmt.Errorf("niet alle bestanden zijn geaccepteerd")
			}
			return nil
		},
	}
}

func newDocsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sess := env.restoreSession()
			if !sess.RemoveDoc(args[0]) {
				return fmt.Errorf("document %q not found", args[0])
			}
			ingest.NewClient(env.cfg.Ingest.BaseURL, log).Remove(ctx, args[0])
			persistSession(env, sess)

			fmt.Println("Verwijderd:", args[0])
			return nil
		},
	}
}

func printDocs(docs []domain.Document) {
	if len(docs) == 0 {
		fmt.Println("Geen documenten geladen.")
		return
	}
	for _, d := range docs {
		fmt.Printf("%-24s  %-32s  %8s  %-4s  [%s]\n",
			d.ID, d.Name, humanize.Bytes(uint64(d.Size)), d.TypeLabel, ingest.StatusLabel(d.Status))
	}
	c := ingest.ComputeUploadCounters(docs)
	fmt.Printf("\n%d geladen, %d verwerkt, %d geslaagd\n", c.Docs, c.Processed, c.Success)
}
