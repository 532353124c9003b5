package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/aimylabs/aimy/internal/conversation"
	"github.com/aimylabs/aimy/internal/domain"
	"github.com/aimylabs/aimy/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past chat sessions",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryArchiveCmd("archive", true))
	cmd.AddCommand(newHistoryArchiveCmd("unarchive", false))
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistoryOpenCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		archived bool
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list [query...]",
		Short: "List saved sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			entries := env.store.LoadChatHistory()
			if !all {
				filtered := entries[:0]
				for _, e := range entries {
					if e.Archived == archived {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			tokens := domain.ExtractSearchTokens(strings.Join(args, " "))
			entries = domain.FilterHistoryEntries(entries, tokens)

			if len(entries) == 0 {
				fmt.Println("Geen gesprekken gevonden.")
				return nil
			}
			for _, e := range entries {
				marker := " "
				if e.Archived {
					marker = "A"
				}
				fmt.Printf("%s %-28s  %-32s  %3d berichten  %s\n",
					marker, e.ID, e.Title, len(e.Messages), relativeTime(e.UpdatedAt))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&archived, "archived", false, "show archived sessions instead")
	cmd.Flags().BoolVar(&all, "all", false, "show active and archived sessions")

	return cmd
}

func newHistoryArchiveCmd(use string, archived bool) *cobra.Command {
	short := "Archive a session"
	if !archived {
		short = "Move a session back out of the archive"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			entry := env.store.SetChatArchived(args[0], archived)
			if entry == nil {
				return fmt.Errorf("session %q not found", args[0])
			}
			fmt.Printf("%s: %s\n", use, entry.Title)
			return nil
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			env.store.RemoveChatFromHistory(args[0])
			fmt.Println("Verwijderd:", args[0])
			return nil
		},
	}
}

func newHistoryOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Make a past session the live session again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			entry := env.store.MarkChatOpened(args[0])
			if entry == nil {
				return fmt.Errorf("session %q not found", args[0])
			}

			env.store.PersistSnapshot(conversation.Snapshot{
				ChatID:   entry.ID,
				Messages: entry.Messages,
				Docs:     entry.Docs,
			})
			env.store.SavePrechat(store.PrechatDump{
				SerialNumber: entry.SerialNumber,
				Hours:        entry.Hours,
				FaultCodes:   entry.FaultCodes,
			})

			fmt.Printf("Geopend: %s\n\n", entry.Title)
			printTranscript(entry.Messages)
			return nil
		},
	}
}

func relativeTime(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return humanize.Time(t)
}
