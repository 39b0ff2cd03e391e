package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/cleanshift/config"
	"github.com/yeremiapane/cleanshift/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := config.InitDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := database.Migrate(db); err != nil {
			return err
		}
		fmt.Printf("%s schema up to date (%s)\n", color.GreenString("✓"), cfg.Database.Driver)
		return nil
	},
}
