package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/pkmsg"
	"github.com/opd-ai/pkmsg/store"
)

var (
	homeserver  string
	sessionPath string
	verbose     bool
)

func Execute() error {
	root := &cobra.Command{
		Use:           "pkmsg",
		Short:         "Encrypted direct messages over a public-key-addressed store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is fine; flags and real env still apply.
			_ = godotenv.Load()

			if !verbose {
				logrus.SetLevel(logrus.WarnLevel)
			}
			if homeserver == "" {
				homeserver = envOr("PKMSG_HOMESERVER", "http://127.0.0.1:8080")
			}
			if sessionPath == "" {
				sessionPath = os.Getenv("PKMSG_SESSION")
			}
			if sessionPath == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				sessionPath = filepath.Join(dir, ".pkmsg", "session")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&homeserver, "homeserver", "", "homeserver base URL (env PKMSG_HOMESERVER)")
	root.PersistentFlags().StringVar(&sessionPath, "session", "", "wrapped session file (default ~/.pkmsg/session)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(keygenCmd(), whoamiCmd(), sendCmd(), fetchCmd(), inboxCmd(), followsCmd(), drainCmd())
	return root.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newClient builds a facade client bound to the configured homeserver.
func newClient() (*pkmsg.Client, error) {
	return pkmsg.New(pkmsg.Options{
		NewStoreClient: func() (store.Client, error) {
			return store.NewHTTPClient(homeserver), nil
		},
	})
}

// restoredClient builds a client and signs it in from the on-disk session.
func restoredClient(ctx context.Context) (*pkmsg.Client, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(sessionPath)
	if err != nil {
		return nil, fmt.Errorf("no session at %s (run 'pkmsg keygen' first): %w", sessionPath, err)
	}

	if _, err := client.RestoreSession(ctx, string(blob)); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return client, nil
}
