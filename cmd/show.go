package cmd

import (
	"fmt"

	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/sync"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <participant>",
	Short:   "Show a participant with their registration answers",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		event, regform, p, err := resolveParticipant(ctx, store, args[0])
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")

		// Refresh first; offline or cancelled runs show the cached copy
		if !p.Deleted {
			var report sync.Reporter = reporter
			if jsonOutput {
				report = nil
			}
			r := sync.NewReconciler(store, dialer(), report)
			res, err := r.SyncParticipant(ctx, event, regform, p)
			if err != nil {
				return err
			}
			if res.Outcome == sync.OK || res.Outcome == sync.NotFound {
				fresh, err := store.GetParticipant(ctx, p.ID)
				if err != nil {
					return err
				}
				if fresh != nil {
					p = fresh
				}
			}
		}

		if jsonOutput {
			return output.JSON(p)
		}
		if p.Deleted {
			output.Warning("%s was deleted on the server", p.FullName)
		}

		card, err := output.RenderParticipant(p, regform)
		if err != nil {
			return err
		}
		fmt.Print(card)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("json", false, "JSON output")
}
