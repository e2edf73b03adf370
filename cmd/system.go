package cmd

import (
	"fmt"
	"time"

	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/syncconfig"
	"github.com/marcus/checkin/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show version and check for updates",
	GroupID: "system",
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Print(versionStr)
			return
		}

		checkUpdates, _ := cmd.Flags().GetBool("check")

		fmt.Printf("checkin version %s\n", versionStr)

		if !checkUpdates || version.IsDevelopmentVersion(versionStr) {
			return
		}

		if cached, err := version.LoadCache(); err == nil && version.IsCacheValid(cached, versionStr) {
			if cached.HasUpdate {
				printUpdate(cached.LatestVersion)
			}
			return
		}

		result := version.Check(cmd.Context(), versionStr)
		if result.Error != nil {
			// Offline desks are normal; stay quiet
			return
		}
		_ = version.SaveCache(&version.CacheEntry{
			LatestVersion:  result.LatestVersion,
			CurrentVersion: versionStr,
			CheckedAt:      time.Now(),
			HasUpdate:      result.HasUpdate,
		})
		if result.HasUpdate {
			printUpdate(result.LatestVersion)
		}
	},
}

func printUpdate(latest string) {
	fmt.Printf("\nUpdate available: %s → %s\n", versionStr, latest)
	if cmd := version.UpdateCommand(latest); cmd != "" {
		fmt.Printf("Run: %s\n", cmd)
	}
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show or change settings",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(map[string]any{
				syncconfig.KeyDataDir:        cfg.DataDir,
				syncconfig.KeyRequestTimeout: cfg.RequestTimeout.String(),
				syncconfig.KeyAutoCheckin:    cfg.AutoCheckin,
				syncconfig.KeySound:          cfg.Sound,
				syncconfig.KeySyncInterval:   cfg.SyncInterval.String(),
				syncconfig.KeyDebug:          cfg.Debug,
			})
		}
		fmt.Printf("%-16s %s\n", syncconfig.KeyDataDir, cfg.DataDir)
		fmt.Printf("%-16s %s\n", syncconfig.KeyRequestTimeout, cfg.RequestTimeout)
		fmt.Printf("%-16s %t\n", syncconfig.KeyAutoCheckin, cfg.AutoCheckin)
		fmt.Printf("%-16s %t\n", syncconfig.KeySound, cfg.Sound)
		fmt.Printf("%-16s %s\n", syncconfig.KeySyncInterval, cfg.SyncInterval)
		fmt.Printf("%-16s %t\n", syncconfig.KeyDebug, cfg.Debug)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Store a setting in the config file",
	Example: `  checkin config set auto_checkin true`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := syncconfig.Set(args[0], args[1]); err != nil {
			return err
		}
		output.Success("SET %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, configCmd)
	configCmd.AddCommand(configSetCmd)

	versionCmd.Flags().Bool("check", true, "check for updates")
	versionCmd.Flags().Bool("short", false, "output only the version string")
	configCmd.Flags().Bool("json", false, "JSON output")
}
