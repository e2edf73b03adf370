package cmd

import (
	"fmt"
	"strings"

	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/sync"
	"github.com/spf13/cobra"
)

var checkinCmd = &cobra.Command{
	Use:     "checkin <participant>",
	Aliases: []string{"in"},
	Short:   "Check a participant in",
	Long: `Checks a participant in on the server, then records the server's answer
locally. Nothing changes locally when the server cannot be reached.`,
	GroupID: "desk",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		event, regform, p, err := resolveParticipant(ctx, store, args[0])
		if err != nil {
			return err
		}
		undo, _ := cmd.Flags().GetBool("undo")

		g := sync.NewGateway(store, dialer(), reporter)
		outcome, err := g.SetCheckedIn(ctx, event, regform, p, !undo, bell())
		if err != nil {
			return err
		}
		switch outcome {
		case sync.OK:
			if undo {
				output.Success("CHECK-IN UNDONE %s", p.FullName)
			} else {
				output.Success("CHECKED IN %s", p.FullName)
			}
		case sync.NotFound:
			output.Warning("%s no longer exists on the server", p.FullName)
		case sync.Aborted:
			return ctx.Err()
		default:
			return fmt.Errorf("check-in of %s failed: %s", p.FullName, outcome)
		}
		return nil
	},
}

var payCmd = &cobra.Command{
	Use:     "pay <participant>",
	Short:   "Mark a participant's registration as paid",
	GroupID: "desk",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		event, regform, p, err := resolveParticipant(ctx, store, args[0])
		if err != nil {
			return err
		}
		unpay, _ := cmd.Flags().GetBool("unpay")

		g := sync.NewGateway(store, dialer(), reporter)
		outcome, err := g.SetPaid(ctx, event, regform, p, !unpay)
		if err != nil {
			return err
		}
		switch outcome {
		case sync.OK:
			fresh, err := store.GetParticipant(ctx, p.ID)
			if err != nil || fresh == nil {
				return err
			}
			output.Success("%s: %s", p.FullName, fresh.State)
		case sync.NotFound:
			output.Warning("%s no longer exists on the server", p.FullName)
		case sync.Aborted:
			return ctx.Err()
		default:
			return fmt.Errorf("payment update of %s failed: %s", p.FullName, outcome)
		}
		return nil
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <participant> [text...]",
	Short: "Set the local notes of a participant",
	Long: `Replaces the notes kept for a participant on this device. Notes are
never sent to the server and survive syncs. Without text the notes are
cleared.`,
	GroupID: "desk",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		_, _, p, err := resolveParticipant(ctx, store, args[0])
		if err != nil {
			return err
		}
		notes := strings.Join(args[1:], " ")

		g := sync.NewGateway(store, dialer(), reporter)
		if err := g.SetNotes(ctx, p.ID, notes); err != nil {
			return err
		}
		if notes == "" {
			output.Success("CLEARED notes of %s", p.FullName)
		} else {
			output.Success("NOTED %s", p.FullName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkinCmd, payCmd, noteCmd)
	checkinCmd.Flags().Bool("undo", false, "undo the check-in")
	payCmd.Flags().Bool("unpay", false, "mark as not paid")
}
