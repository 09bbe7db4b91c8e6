package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opd-ai/pkmsg/crypto"
	"github.com/opd-ai/pkmsg/vault"
)

// keygen: generate a fresh identity and persist it as a wrapped session.
func keygenCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new identity keypair and store it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(sessionPath); err == nil {
					return fmt.Errorf("session already exists at %s (use --force to overwrite)", sessionPath)
				}
			}

			keyPair, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			defer func() { _ = crypto.WipeKeyPair(keyPair) }()

			publicKey := crypto.PublicKeyString(keyPair.Public)

			session, err := vault.Wrap(keyPair)
			if err != nil {
				return err
			}
			blob, err := session.Encode()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(sessionPath), 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(sessionPath, []byte(blob), 0o600); err != nil {
				return err
			}

			fmt.Printf("public key: %s\nsession written to %s\n", publicKey, sessionPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing session file")
	return cmd
}
