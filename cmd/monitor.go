package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/checkin/pkg/monitor"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <event> <regform>",
	Short: "Check-in desk for one registration form",
	Long: `Launch the check-in desk: a live participant list for one registration
form that syncs periodically and accepts scanned QR codes.

Key bindings:
  s / Enter  Scan (paste or use a keyboard-wedge scanner)
  c / Space  Toggle check-in of the selected participant
  p          Toggle payment
  /          Filter by name
  ↑/↓ j/k    Move
  r          Sync now
  q          Quit`,
	GroupID: "desk",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		event, err := resolveEvent(ctx, store, args[0])
		if err != nil {
			return err
		}
		regform, err := resolveRegform(ctx, store, event, args[1])
		if err != nil {
			return err
		}

		model := monitor.NewModel(monitor.Options{
			DB:          store,
			Dialer:      dialer(),
			Event:       event,
			Regform:     regform,
			Interval:    cfg.SyncInterval,
			AutoCheckin: cfg.AutoCheckin,
			Bell:        bell(),
			Version:     versionStr,
		})

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running monitor: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Duration("sync-interval", 0, "time between automatic syncs (default 30s)")
	monitorCmd.Flags().Bool("auto-checkin", false, "check scanned participants in immediately")
	monitorCmd.Flags().Bool("sound", true, "ring the bell on check-in")
}
