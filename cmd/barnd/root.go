package main

import (
	"github.com/samson-media/barn/internal/daemonconfig"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "barnd",
	Short: "barnd runs and supervises background jobs under load-level admission limits",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to barnd's TOML config file (defaults applied if absent)")
	rootCmd.AddCommand(startCmd, statusCmd, cleanCmd)
}

func loadConfig() (*daemonconfig.Config, error) {
	return daemonconfig.Load(configPath)
}
