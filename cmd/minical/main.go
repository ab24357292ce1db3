package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appLog "minical/internal/log"
)

var (
	configFlag  string
	verboseFlag bool

	rootCmd = &cobra.Command{
		Use:   "minical",
		Short: "Personal calendar daemon: event store, month view, reminders",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verboseFlag {
				appLog.SetLevel(appLog.LevelDebug)
			}
		},
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", defaultConfigPath(), "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/minical/config.yaml"
	}
	return "./minical.yaml"
}
