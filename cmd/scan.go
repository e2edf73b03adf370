package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/qrcode"
	"github.com/marcus/checkin/internal/sync"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [payload]",
	Short: "Ingest the text of a scanned QR code",
	Long: `Ingests the decoded text of an event or ticket QR code.

An event code adds the event and its registration form (or restores them
if they were deleted). A ticket code looks the participant up on the
server, falling back to the local copy when the server is unreachable.
Without an argument, or with "-", one payload per line is read from stdin.`,
	Example: `  checkin scan '{"checkin_secret": "0f3c...", "server_url": "https://events.example.org"}'
  zbarcam --raw | checkin scan --auto-checkin`,
	GroupID: "desk",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		g := sync.NewGateway(store, dialer(), reporter)

		if len(args) == 1 && args[0] != "-" {
			return scanOne(cmd, store, g, args[0])
		}

		r := bufio.NewReader(os.Stdin)
		for {
			line, err := r.ReadString('\n')
			if text := strings.TrimSpace(line); text != "" {
				if serr := scanOne(cmd, store, g, text); serr != nil {
					output.Error("%v", serr)
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if cmd.Context().Err() != nil {
				return nil
			}
		}
	},
}

func scanOne(cmd *cobra.Command, store *db.DB, g *sync.Gateway, text string) error {
	ctx := cmd.Context()

	payload, err := qrcode.Parse(text)
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case *qrcode.EventPayload:
		res, err := g.ScanEvent(ctx, p)
		if err != nil || res == nil {
			return err
		}
		output.Success("EVENT %s · %s  %s", p.Title, p.RegformTitle, res.Path)

	case *qrcode.ParticipantPayload:
		res, err := g.ScanParticipant(ctx, p, cfg.AutoCheckin)
		if err != nil || res == nil {
			return err
		}
		if _, err := g.CheckInScanned(ctx, res, bell()); err != nil {
			return err
		}
		participant, err := store.GetParticipant(ctx, res.ParticipantID)
		if err != nil || participant == nil {
			return err
		}
		line := output.FormatParticipantShort(participant)
		if res.Offline {
			line += "  (offline)"
		}
		fmt.Println(line)
		output.Info("  %s", res.Path)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("auto-checkin", false, "check scanned participants in immediately")
}
