package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rileyhilliard/drbdmon/internal/config"
	"github.com/spf13/cobra"
)

var (
	configInitForce  bool
	configInitGlobal bool
)

// configCmd groups the config subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the drbdmon config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Long: `Write every setting with its default value, ready for editing.

By default the file is .drbdmon.yaml in the current directory. With
--global it is ~/.config/drbdmon/config.yaml (or below $XDG_CONFIG_HOME).

Examples:
  drbdmon config init
  drbdmon config init --global
  drbdmon config init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName
		if configInitGlobal {
			path = config.GlobalPath()
		}
		if configFlag != "" {
			path = config.ExpandTilde(configFlag)
		}
		return configInitCommand(path, configInitForce, cmd.OutOrStdout())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration drbdmon would use: the config file found by the
usual search, with environment overrides and --host applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return configShowCommand(cfg, cmd.OutOrStdout())
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configInitGlobal, "global", false, "write the user config instead of ./.drbdmon.yaml")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func configInitCommand(path string, force bool, out io.Writer) error {
	if err := config.Write(path, config.DefaultConfig(), force); err != nil {
		return err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

func configShowCommand(cfg *config.Config, out io.Writer) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	if cfg.Path != "" {
		fmt.Fprintf(out, "# Loaded from %s\n", cfg.Path)
	} else {
		fmt.Fprintln(out, "# No config file found, showing defaults")
	}
	_, err = out.Write(data)
	return err
}
