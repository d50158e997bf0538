package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hospitality-commands/internal/common/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "command-server",
	Short:         "Hospitality command interpreter",
	Long:          "Turns free-text hotel operations messages into structured commands, records them and replies to the sender.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config YAML file (default: configs/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(interpretCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
