package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/cleanshift/config"
	"github.com/yeremiapane/cleanshift/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cleanshift",
	Short: "Cleaning shift dispatch and arrival monitoring",
	Long: `cleanshift assigns cleaning workers to morning, afternoon and evening shifts
at client properties and alerts the owning admin when a worker has not confirmed
arrival within the grace period after the shift starts.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./cleanshift.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig reads the configuration and applies its logging and auth settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	utils.InitLogger(cfg.Log.Level, cfg.Log.Format)
	utils.ConfigureJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	return cfg, nil
}
