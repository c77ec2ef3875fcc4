package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bastiangx/symptoserve/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over MessagePack on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, release, err := loadPredictor(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer release()

			log.Debug("spawning IPC")
			srv := server.NewServer(p, a.cfg.Server, os.Stdin, os.Stdout)
			showStartupInfo(a, p.Strategies())
			return srv.Start(ctx)
		},
	}
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(a *app, strategies []string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("data dir: ( %s )", a.cfg.Artifacts.Dir)
	log.Info("matching", "strategies", strategies)
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
