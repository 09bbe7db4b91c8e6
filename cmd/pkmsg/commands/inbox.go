package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// inbox: merged recent messages across all followed contacts.
func inboxCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Show recent messages from all followed contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := restoredClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.SignOut()

			messages, err := client.GetInbox(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(messages) > limit {
				messages = messages[:limit]
			}
			if len(messages) == 0 {
				fmt.Println("no messages")
				return nil
			}

			for _, msg := range messages {
				when := time.Unix(int64(msg.Timestamp), 0).UTC().Format(time.RFC3339)
				fmt.Printf("[%s] %s: %s\n", when, shortKey(msg.Sender), msg.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum messages to show (0 for all)")
	return cmd
}
