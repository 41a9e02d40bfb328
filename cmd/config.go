package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mabhi256/hotscope/internal/config"
)

var (
	configForce      bool
	configShowOutput string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hotscope configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration as TOML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.FileName + ".toml"
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if configShowOutput != "toml" && configShowOutput != formatJSON {
			return fmt.Errorf("invalid output format: %s. Valid options: [toml json]", configShowOutput)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if configShowOutput == formatJSON {
			return writeJSON(cmd.OutOrStdout(), cfg)
		}
		return cfg.Encode(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", "toml", "Output format (toml|json)")
}
