package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"nyx-chat/internal/domain"
	"nyx-chat/internal/domain/model"
)

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"history"},
		Short:   "Inspect and prune the stored conversation history",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List conversations, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openSession(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer s.close()

				all := s.client.Store.Sessions().All()
				out := cmd.OutOrStdout()
				if len(all) == 0 {
					printf(out, "%s\n", s.client.Text.T("cli_no_sessions"))
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				printf(tw, "ID\tUPDATED\tMESSAGES\tTITLE\n")
				for _, cs := range all {
					printf(tw, "%s\t%s\t%d\t%s\n", cs.ID, cs.UpdatedAt.Local().Format(time.DateTime), len(cs.Messages), cs.Title)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openSession(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer s.close()

				cs, ok := s.client.Store.Find(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, args[0])
				}
				out := cmd.OutOrStdout()
				printf(out, "%s\n\n", cs.Title)
				for _, m := range cs.Messages {
					label := s.client.Text.T("chat_nyx")
					if m.Role == model.RoleUser {
						label = s.client.Text.T("chat_you")
					}
					printf(out, "%s  %s\n%s\n\n", label, m.Timestamp.Local().Format(time.Kitchen), m.Content)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:     "delete <id>",
			Aliases: []string{"rm"},
			Short:   "Delete a conversation",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				s, err := openSession(ctx, opts)
				if err != nil {
					return err
				}
				defer s.close()

				if !s.client.Store.Sessions().Contains(args[0]) {
					return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, args[0])
				}
				if err := s.client.DeleteChat(ctx, args[0]); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s\n", s.client.Text.T("cli_deleted", args[0]))
				return nil
			},
		},
	)
	return cmd
}
