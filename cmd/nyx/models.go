package main

import (
	"github.com/spf13/cobra"
)

func newModelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the configured AI provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.close()

			names, err := s.client.Models(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				marker := " "
				if n == s.cfg.AI.DefaultModel {
					marker = "*"
				}
				printf(cmd.OutOrStdout(), "%s %s\n", marker, n)
			}
			return nil
		},
	}
}
