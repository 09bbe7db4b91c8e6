package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// whoami: show the public key and display name of the local session.
func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active session's public key and name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := restoredClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.SignOut()

			profile := client.GetOwnProfile()
			if profile == nil {
				return fmt.Errorf("not signed in")
			}

			fmt.Printf("public key: %s\n", profile.PublicKey)
			if profile.Name != nil {
				fmt.Printf("name: %s\n", *profile.Name)
			}
			return nil
		},
	}
}
