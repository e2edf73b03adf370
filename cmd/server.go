package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/qrcode"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Short:   "Manage the servers this device holds a token for",
	GroupID: "system",
}

var serverAddCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Register a server and its access token",
	Long: `Registers a server so event QR codes pointing at it can be scanned.

Without a URL or --token the values are asked for interactively.`,
	Example: `  checkin server add https://events.example.org --token abc123`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var s models.Server
		if len(args) == 1 {
			s.BaseURL = args[0]
		}
		s.AuthToken, _ = cmd.Flags().GetString("token")
		s.ClientID, _ = cmd.Flags().GetString("client-id")
		s.Scope, _ = cmd.Flags().GetString("scope")

		if s.BaseURL == "" || s.AuthToken == "" {
			if !isTerminal() {
				return errors.New("a server URL and --token are required")
			}
			if err := serverForm(&s).Run(); err != nil {
				return err
			}
		}
		if err := qrcode.ValidateServerURL(s.BaseURL); err != nil {
			return err
		}
		s.BaseURL = models.NormalizeBaseURL(s.BaseURL)

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		existing, err := store.GetServerByURL(ctx, s.BaseURL)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := updateServer(ctx, store, existing.ID, db.Changes{
				"auth_token": s.AuthToken,
				"client_id":  s.ClientID,
				"scope":      s.Scope,
			}); err != nil {
				return err
			}
			output.Success("UPDATED server #%d %s", existing.ID, s.BaseURL)
			return nil
		}

		var id int64
		err = store.Update(ctx, func(tx *db.Tx) error {
			id, err = tx.AddServer(ctx, &s)
			return err
		})
		if err != nil {
			return err
		}
		output.Success("ADDED server #%d %s", id, s.BaseURL)
		return nil
	},
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		servers, err := store.ListServers(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(servers)
		}
		if len(servers) == 0 {
			output.Info("No servers. Add one with: checkin server add <url> --token <token>")
			return nil
		}
		for _, s := range servers {
			token := "no token"
			if s.AuthToken != "" {
				token = "token set"
			}
			fmt.Printf("#%d  %s  (%s)\n", s.ID, s.BaseURL, token)
		}
		return nil
	},
}

var serverTokenCmd = &cobra.Command{
	Use:   "token <server>",
	Short: "Replace the access token of a server",
	Long:  `Replaces the token of a server given by id or URL. Without --token it is read from the terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		server, err := resolveServer(ctx, store, args[0])
		if err != nil {
			return err
		}

		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			if token, err = readToken(); err != nil {
				return err
			}
		}
		if err := updateServer(ctx, store, server.ID, db.Changes{"auth_token": token}); err != nil {
			return err
		}
		output.Success("UPDATED token of %s", server.BaseURL)
		return nil
	},
}

func serverForm(s *models.Server) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Placeholder("https://events.example.org").
				Value(&s.BaseURL).
				Validate(qrcode.ValidateServerURL),
			huh.NewInput().
				Title("Access token").
				EchoMode(huh.EchoModePassword).
				Value(&s.AuthToken).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errors.New("token is required")
					}
					return nil
				}),
		),
	)
}

// resolveServer finds a server by local id or base URL
func resolveServer(ctx context.Context, store *db.DB, arg string) (*models.Server, error) {
	var server *models.Server
	var err error
	if id, perr := parseID("server", arg); perr == nil {
		server, err = store.GetServer(ctx, id)
	} else {
		server, err = store.GetServerByURL(ctx, arg)
	}
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("server %q not found", arg)
	}
	return server, nil
}

func updateServer(ctx context.Context, store *db.DB, id int64, changes db.Changes) error {
	return store.Update(ctx, func(tx *db.Tx) error {
		return tx.BulkUpdate(ctx, models.KindServer, []db.Update{{ID: id, Changes: changes}})
	})
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readToken prompts for a token without echoing it
func readToken() (string, error) {
	if !isTerminal() {
		return "", errors.New("--token is required when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Access token: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverAddCmd, serverListCmd, serverTokenCmd)

	serverAddCmd.Flags().String("token", "", "access token")
	serverAddCmd.Flags().String("client-id", "", "OAuth client id")
	serverAddCmd.Flags().String("scope", "", "OAuth scope")
	serverListCmd.Flags().Bool("json", false, "JSON output")
	serverTokenCmd.Flags().String("token", "", "new access token")
}
