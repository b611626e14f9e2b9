package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"elgchat/internal/domain"
)

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <participant>...",
		Short: "Create a conversation with one or more participants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := unlock()
			if err != nil {
				return err
			}
			defer sess.Close()

			peers := make([]domain.ParticipantID, len(args))
			for i, a := range args {
				peers[i] = domain.ParticipantID(a)
			}
			conv, err := appCtx.Conversations.Create(cmd.Context(), sess, peers)
			if err != nil {
				return err
			}
			names := make([]string, len(conv.ParticipantIDs))
			for i, p := range conv.ParticipantIDs {
				names[i] = p.String()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", conv.ID, strings.Join(names, ","))
			return nil
		},
	}
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List the conversations you belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := unlock()
			if err != nil {
				return err
			}
			defer sess.Close()

			convs, err := appCtx.Conversations.Sync(cmd.Context(), sess)
			if err != nil {
				return err
			}
			for _, c := range convs {
				names := make([]string, len(c.ParticipantIDs))
				for i, p := range c.ParticipantIDs {
					names[i] = p.String()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, strings.Join(names, ","))
			}
			return nil
		},
	}
}
