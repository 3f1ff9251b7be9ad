package main

import (
	"fmt"
	"os"

	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
	"github.com/tutumi2011kt-gif/mulmochat/config"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat", "cmd")

var (
	configFile string
	debug      bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:           "mulmochat",
	Short:         "MulmoChat voice assistant server",
	Long:          "MulmoChat serves realtime voice sessions with image, browse, map and presentation tools",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
		if debug {
			xlog.SetGlobalLogLevel(xlog.DEBUG)
		} else {
			xlog.SetGlobalLogLevel(xlog.INFO)
		}
	},
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}
