package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgnsrekt/trello-player/internal/auth"
	"github.com/dgnsrekt/trello-player/internal/storage"
	"github.com/spf13/cobra"
)

var (
	apiKey string
	logout bool
)

var authCmd = &cobra.Command{
	Use:         "auth",
	Short:       "Authorize the player with Trello",
	Long:        paragraph(fmt.Sprintf("\n%s the player to read your boards. The token is stored with your pitch preferences.", keyword("Authorize"))),
	Example:     paragraph("trello-player auth --api-key 0123...\ntrello-player auth --logout"),
	Args:        cobra.NoArgs,
	Annotations: map[string]string{logAnnotation: logToStderr},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		store, err := storage.OpenFileStore(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		manager := auth.NewManager(store, auth.NewValidator(cfg.Trello.APIURL))
		if logout {
			if err := manager.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Logged out.") //nolint:errcheck
			return nil
		}

		initErr := manager.Init(ctx)
		if initErr == nil && apiKey == "" {
			fmt.Fprintln(os.Stderr, "Already authorized.") //nolint:errcheck
			return nil
		}

		key := apiKey
		if key == "" {
			key = cfg.Trello.APIKey
		}
		if key == "" {
			key, _ = manager.Credentials()
		}
		if err := manager.Authorize(ctx, key, auth.NewTerminal()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, keyword("Authorized.")) //nolint:errcheck
		return nil
	},
}

func init() {
	authCmd.Flags().StringVar(&apiKey, "api-key", "", "Power-Up API key")
	authCmd.Flags().BoolVar(&logout, "logout", false, "forget the stored token")
}
