package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/bastiangx/symptoserve/pkg/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage SymptoServe configuration",
		Long: `Manage the TOML configuration file.

Configuration priority (highest to lowest):
1. --config flag
2. [UserConfigDir]/symptoserve/config.toml
3. Builtin defaults`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", config.GetActiveConfigPath(a.activePath))
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(a.cfg)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				if !force {
					// LoadConfigWithPriority already created it if it was missing
					fmt.Fprintln(cmd.OutOrStdout(), config.GetActiveConfigPath(a.activePath))
					return nil
				}
				if err := config.RebuildConfigFile(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), config.GetActiveConfigPath(""))
				return nil
			}
			if force {
				if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
					return err
				}
			} else if _, err := config.InitConfig(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.GetActiveConfigPath(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file with defaults")

	cmd.AddCommand(show, initCmd)
	return cmd
}
