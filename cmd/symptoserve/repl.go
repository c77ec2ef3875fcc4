package main

import (
	"github.com/spf13/cobra"

	"github.com/bastiangx/symptoserve/internal/cli"
)

func newReplCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Try predictions interactively -- useful for testing and debugging",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, release, err := loadPredictor(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer release()

			if limit < 1 {
				limit = a.cfg.Suggest.Limit
			}
			h := cli.NewInputHandler(p, cmd.InOrStdin(), cmd.OutOrStdout(), limit, a.cfg.Server.MaxInputLen)
			return h.Start(ctx)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of suggestions to show (default from config)")
	return cmd
}
