package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bastiangx/symptoserve/internal/logger"
	"github.com/bastiangx/symptoserve/pkg/config"
)

// app carries the persistent flags and the config they resolve to.
type app struct {
	configPath string
	dataDir    string
	debug      bool

	cfg        *config.Config
	activePath string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   AppName,
		Short: "SymptoServe - symptom matching and disease ranking",
		Long: `SymptoServe resolves free-text symptoms against a known vocabulary
and ranks the diseases a trained classifier finds likely.

It serves predictions over MessagePack IPC or an interactive CLI.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: [UserConfigDir]/symptoserve/config.toml)")
	root.PersistentFlags().StringVar(&a.dataDir, "data", "", "directory holding the model artifacts (overrides artifacts.dir)")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Toggle debug mode")

	root.AddCommand(
		newServeCmd(a),
		newReplCmd(a),
		newInspectCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// init sets up logging and loads the config once per invocation.
func (a *app) init() error {
	if err := logger.Setup("", a.debug); err != nil {
		return err
	}
	cfg, path, err := config.LoadConfigWithPriority(a.configPath)
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.Log.Level, a.debug); err != nil {
		log.Warnf("Invalid log level %q: %v. Using info.", cfg.Log.Level, err)
	}
	if a.dataDir != "" {
		cfg.Artifacts.Dir = a.dataDir
	}
	a.cfg = cfg
	a.activePath = path
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(path))
	return nil
}
