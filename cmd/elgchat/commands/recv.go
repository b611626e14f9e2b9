package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// recv: fetch, decrypt and acknowledge queued messages.
func recvCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := unlock()
			if err != nil {
				return err
			}
			defer sess.Close()

			msgs, err := appCtx.Conversations.Receive(cmd.Context(), sess, limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				tag := ""
				if m.Direct {
					tag = " (direct)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s%s: %s\n", m.ConversationID, m.From, tag, m.Text())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "fetch at most this many messages (0 for all)")
	return cmd
}
