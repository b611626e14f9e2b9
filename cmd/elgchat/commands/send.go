package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"elgchat/internal/domain"
)

// send <conversation> <message>: one ciphertext under the conversation's sender key.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation> <message>",
		Short: "Encrypt and send a message to a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := unlock()
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := appCtx.Conversations.Send(cmd.Context(), sess, domain.ConversationID(args[0]), []byte(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
}

// send-direct <conversation> <message>: ElGamal ciphertext per recipient.
func sendDirectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-direct <conversation> <message>",
		Short: "Encrypt a message separately for each participant and send it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := unlock()
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := appCtx.Conversations.SendDirect(cmd.Context(), sess, domain.ConversationID(args[0]), []byte(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
}
