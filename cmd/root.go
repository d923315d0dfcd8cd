// Package cmd wires the CLI surface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/octools/go-biospatch/internal/config"
	"github.com/octools/go-biospatch/internal/logger"
)

var cfgFile string

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "biospatch",
	Short: "A firmware image editor for Dell desktop BIOSes",
	Long: `biospatch parses a UEFI firmware image, checks it for write
protections like Boot Guard and PFAT, and applies tuning profiles to
the Setup variable: power limits, voltage offsets, lock bits, PCIe
features and the ME HAP bit.

Modified images must be flashed with an external programmer or vendor
tooling; biospatch only edits the file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// CLI flags can override config settings
		if cmd.Flags().Changed("debug") {
			debug, _ := cmd.Flags().GetBool("debug")
			config.Instance.Debug = debug
		}
		if cmd.Flags().Changed("log-format") {
			logFormat, _ := cmd.Flags().GetString("log-format")
			config.Instance.LogFormat = logFormat
		}

		// If config file was explicitly specified via flag, reinitialize
		if cmd.Flags().Changed("config") && cfgFile != "" {
			if err := config.Initialize(cfgFile); err != nil {
				logger.LogError("Error loading config file", err, map[string]interface{}{
					"config_file": cfgFile,
				})
			}
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")
	rootCmd.PersistentFlags().Bool("debug", config.Instance.Debug, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", config.Instance.LogFormat, "Log format: json or human")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("biospatch v0.1.0")
	},
}
