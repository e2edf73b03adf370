package cmd

import (
	"fmt"
	"strings"

	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
)

// stateFilter is a repeatable --state flag restricted to known states
type stateFilter []models.ParticipantState

func (f *stateFilter) String() string {
	parts := make([]string, len(*f))
	for i, s := range *f {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func (f *stateFilter) Set(v string) error {
	if strings.TrimSpace(v) == "" {
		*f = nil
		return nil
	}
	for _, part := range strings.Split(v, ",") {
		s := models.ParticipantState(strings.ToLower(strings.TrimSpace(part)))
		if !s.IsValid() {
			return fmt.Errorf("unknown state %q (want one of %s)", part, stateNames())
		}
		*f = append(*f, s)
	}
	return nil
}

func (f *stateFilter) Type() string { return "state" }

func (f stateFilter) match(s models.ParticipantState) bool {
	if len(f) == 0 {
		return true
	}
	for _, want := range f {
		if want == s {
			return true
		}
	}
	return false
}

func stateNames() string {
	names := make([]string, len(models.ParticipantStates))
	for i, s := range models.ParticipantStates {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "List events on this device",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		all, _ := cmd.Flags().GetBool("all")
		events, err := store.ListEvents(cmd.Context(), all)
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(events)
		}
		if len(events) == 0 {
			output.Info("No events. Scan an event QR code with: checkin scan")
			return nil
		}
		for i := range events {
			fmt.Println(output.FormatEvent(&events[i]))
		}
		return nil
	},
}

var regformsCmd = &cobra.Command{
	Use:     "regforms <event>",
	Aliases: []string{"forms"},
	Short:   "List the registration forms of an event",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
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
		all, _ := cmd.Flags().GetBool("all")
		regforms, err := store.ListRegforms(ctx, event.ID, all)
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(regforms)
		}

		fmt.Println(output.FormatEvent(event))
		for i := range regforms {
			fmt.Println("  " + output.FormatRegform(&regforms[i]))
		}
		return nil
	},
}

type participantNames []models.Participant

func (n participantNames) String(i int) string { return n[i].FullName }
func (n participantNames) Len() int            { return len(n) }

// filterParticipants applies the state filter, then ranks by a fuzzy name
// search when one is given
func filterParticipants(ps []models.Participant, states stateFilter, search string) []models.Participant {
	var kept []models.Participant
	for _, p := range ps {
		if states.match(p.State) {
			kept = append(kept, p)
		}
	}
	if search == "" {
		return kept
	}
	matches := fuzzy.FindFrom(search, participantNames(kept))
	out := make([]models.Participant, len(matches))
	for i, m := range matches {
		out[i] = kept[m.Index]
	}
	return out
}

var participantStates stateFilter

var participantsCmd = &cobra.Command{
	Use:     "participants <event> <regform>",
	Aliases: []string{"ps"},
	Short:   "List the participants of a registration form",
	Example: `  checkin participants 1 2 --state unpaid
  checkin participants 1 2 --search "lovel"`,
	GroupID: "data",
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

		all, _ := cmd.Flags().GetBool("all")
		ps, err := store.ListParticipants(ctx, regform.ID, all)
		if err != nil {
			return err
		}
		search, _ := cmd.Flags().GetString("search")
		ps = filterParticipants(ps, participantStates, search)

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(ps)
		}

		fmt.Println(output.FormatRegform(regform))
		if len(ps) == 0 {
			output.Info("  no participants")
			return nil
		}
		for i := range ps {
			fmt.Println("  " + output.FormatParticipantShort(&ps[i]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd, regformsCmd, participantsCmd)

	for _, c := range []*cobra.Command{eventsCmd, regformsCmd, participantsCmd} {
		c.Flags().Bool("all", false, "include deleted entries")
		c.Flags().Bool("json", false, "JSON output")
	}
	participantsCmd.Flags().Var(&participantStates, "state", "only these states ("+stateNames()+")")
	participantsCmd.Flags().String("search", "", "fuzzy search by name")
}
