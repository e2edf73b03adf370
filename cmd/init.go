package cmd

import (
	"os"
	"path/filepath"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local database",
	Long:    `Creates the data directory and the SQLite database that mirrors events, forms and participants.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(filepath.Join(cfg.DataDir, "checkin.db")); err == nil {
			output.Warning("database already exists in %s", cfg.DataDir)
			return nil
		}

		store, err := db.Initialize(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		output.Success("INITIALIZED %s", cfg.DataDir)
		output.Info("Next: checkin server add <url> --token <token>, then scan an event QR code")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
