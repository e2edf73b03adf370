package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/sync"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxParallelSyncs bounds how many events sync at once with --all
const maxParallelSyncs = 4

var syncCmd = &cobra.Command{
	Use:   "sync [event]",
	Short: "Refresh local data from the server",
	Long: `Refreshes an event, its registration forms and their participants.

Entries removed on the server are marked deleted locally. New forms are
not added by a sync; scan their event QR code instead. With --all every
event on this device is synced, several at a time.`,
	GroupID: "desk",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if history, _ := cmd.Flags().GetBool("history"); history {
			return showSyncHistory(cmd, args)
		}

		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return errors.New("give either an event id or --all")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var events []models.Event
		if all {
			if events, err = store.ListEvents(ctx, false); err != nil {
				return err
			}
		} else {
			event, err := resolveEvent(ctx, store, args[0])
			if err != nil {
				return err
			}
			if event.Deleted {
				return fmt.Errorf("event #%d was deleted on the server; rescan its QR code to restore it", event.ID)
			}
			events = []models.Event{*event}
		}

		r := sync.NewReconciler(store, dialer(), reporter)
		results := make([]sync.Result, len(events))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelSyncs)
		for i := range events {
			g.Go(func() error {
				res, err := r.SyncTree(gctx, &events[i])
				results[i] = res
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var failed int
		for i, res := range results {
			e := &events[i]
			switch res.Outcome {
			case sync.OK:
				output.Success("SYNCED #%d %s  %s", e.ID, e.Title, res)
			case sync.NotFound:
				output.Warning("#%d %s was deleted on the server", e.ID, e.Title)
			case sync.Aborted:
				output.Info("#%d %s: cancelled", e.ID, e.Title)
			default:
				failed++
				slog.Debug("sync failed", "event", e.ID, "outcome", res.Outcome)
				output.Error("#%d %s: %s", e.ID, e.Title, res.Outcome)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d events could not be synced", failed, len(events))
		}
		return nil
	},
}

// showSyncHistory prints the recent sync runs, of one event if given
func showSyncHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var eventID int64
	if len(args) == 1 {
		event, err := resolveEvent(ctx, store, args[0])
		if err != nil {
			return err
		}
		eventID = event.ID
	}
	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := store.GetSyncHistoryTail(ctx, eventID, limit)
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return output.JSON(entries)
	}
	if len(entries) == 0 {
		output.Info("No syncs yet")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-10s  event #%-4d  %-16s %d new, %d updated, %d deleted\n",
			output.FormatTimeAgo(e.Timestamp), e.EventID, e.Outcome, e.Inserted, e.Updated, e.Deleted)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("all", false, "sync every event on this device")
	syncCmd.Flags().Bool("history", false, "show recent syncs instead of syncing")
	syncCmd.Flags().Int("limit", 20, "entries to show with --history")
	syncCmd.Flags().Bool("json", false, "JSON output with --history")
}
