package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "ask [flags] <message...>",
		Short: "Send one message and print the reply",
		Long: `Sends a single message as the signed-in user and prints Nyx's reply. Without
--session the message opens a new conversation, which shows up in the history.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.requireUser(ctx); err != nil {
				return err
			}

			if sessionID != "" {
				if _, err := s.client.SelectChat(sessionID); err != nil {
					return err
				}
			} else {
				s.client.NewChat()
			}

			reply, err := s.client.Conversation.Send(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", reply.Content)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue the conversation with this id")
	return cmd
}
