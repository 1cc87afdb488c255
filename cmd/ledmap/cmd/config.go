package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/ledmap/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and generate configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a configuration file holding every default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			file = args[0]
		}
		if err := config.GenerateDefaultConfigFile(file); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", file)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		format, _ := cmd.Flags().GetString("format")
		return writeOutput(cmd, format, "", cfg, func(w io.Writer) {
			if used := GetConfigLoader().GetConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(w, "# config file: %s\n", used)
			}
			_, _ = fmt.Fprintf(w, "# search paths: %v\n", config.GetConfigSearchPaths())
			_, _ = fmt.Fprintf(w, "# environment prefix: %s_\n", config.EnvPrefix)
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			_ = enc.Encode(cfg)
			_ = enc.Close()
		})
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml)")
}
