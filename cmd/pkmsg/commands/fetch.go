package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// fetch <peer>: print the merged conversation with a peer in order.
func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <peer-public-key>",
		Short: "Fetch and decrypt the conversation with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := restoredClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.SignOut()

			conv, err := client.GetConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, msg := range conv.Messages {
				when := time.Unix(int64(msg.Timestamp), 0).UTC().Format(time.RFC3339)
				marker := ""
				if !msg.Verified {
					marker = " (unverified)"
				}
				fmt.Printf("[%s] %s%s: %s\n", when, shortKey(msg.Sender), marker, msg.Content)
			}
			if conv.Skipped > 0 {
				fmt.Printf("(%d unreadable objects skipped)\n", conv.Skipped)
			}
			return nil
		},
	}
}

// shortKey abbreviates a 64-char hex key for display.
func shortKey(publicKey string) string {
	if len(publicKey) > 12 {
		return publicKey[:12] + "…"
	}
	return publicKey
}
