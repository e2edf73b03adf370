package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/sync"
	"github.com/marcus/checkin/internal/syncconfig"
	"github.com/spf13/cobra"
)

var (
	versionStr string
	cfg        *syncconfig.Config
)

// SetVersion sets the version string
func SetVersion(v string) {
	versionStr = v
}

var rootCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Event check-in desk with an offline participant cache",
	Long: `checkin - Check participants in at an event desk.

Events, registration forms and participants are mirrored into a local
database so the desk keeps working when the network drops. Scanning a
ticket QR code looks the participant up, checking in updates the server
and the local copy together.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = syncconfig.Load(cmd.Flags())
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogging(cfg.Debug || verbose)
		return nil
	},
}

// Execute runs the root command. An interrupt cancels in-flight requests,
// which the sync engine treats as an abort rather than a failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.Error("%v", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// nameWithAliases returns "name, alias1, alias2" if aliases exist, else just "name"
func nameWithAliases(cmd *cobra.Command) string {
	if len(cmd.Aliases) > 0 {
		return cmd.Name() + ", " + strings.Join(cmd.Aliases, ", ")
	}
	return cmd.Name()
}

func init() {
	cobra.AddTemplateFunc("nameWithAliases", nameWithAliases)
	cobra.AddTemplateFunc("add", func(a, b int) int { return a + b })

	// Usage template that shows aliases inline
	rootCmd.SetUsageTemplate(`Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`)

	rootCmd.AddGroup(
		&cobra.Group{ID: "desk", Title: "Desk Commands:"},
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	pf := rootCmd.PersistentFlags()
	pf.String("data-dir", "", "directory holding the local database")
	pf.Duration("request-timeout", 0, "timeout for each server request")
	pf.Bool("debug", false, "log at debug level")
	pf.BoolP("verbose", "v", false, "alias for --debug")
}

// openStore opens the local database in the configured data dir
func openStore() (*db.DB, error) {
	return db.Open(cfg.DataDir)
}

func dialer() sync.Dialer {
	return sync.HTTPDialer(cfg.RequestTimeout)
}

// reporter prints failures the sync engine hands to the user
var reporter = sync.ReporterFunc(output.Notify)

// bell rings the terminal bell after a check-in when sound is enabled
func bell() func() {
	if !cfg.Sound {
		return nil
	}
	return func() { fmt.Fprint(os.Stderr, "\a") }
}
