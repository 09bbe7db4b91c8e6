package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// follows: list followed accounts with resolved display names.
func followsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follows",
		Short: "List followed accounts and their display names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := restoredClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.SignOut()

			users, err := client.GetFollowedUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("no followed accounts")
				return nil
			}

			for _, user := range users {
				name := "(no name)"
				if user.Name != nil {
					name = *user.Name
				}
				fmt.Printf("%s  %s\n", user.PublicKey, name)
			}
			return nil
		},
	}
}
