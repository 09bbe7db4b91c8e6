package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// send <recipient> <message>: encrypt and deliver a message.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient-public-key> <message>",
		Short: "Send an encrypted message to a recipient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := restoredClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.SignOut()

			if err := client.SendMessage(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}
