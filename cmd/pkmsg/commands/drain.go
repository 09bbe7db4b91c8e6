package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// drain: read and clear the notification inbox.
func drainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Read and clear pending message notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := restoredClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.SignOut()

			events, err := client.DrainNotifications(cmd.Context())
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("no new notifications")
				return nil
			}

			for _, ev := range events {
				fmt.Printf("new message %s from %s\n", ev.MsgID, ev.Sender)
			}
			return nil
		},
	}
}
