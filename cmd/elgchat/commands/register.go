package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"elgchat/internal/domain"
)

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Publish your public key to the relay",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.RequireRelay(); err != nil {
				return err
			}
			name := appCtx.Config.Username
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" {
				return fmt.Errorf("username required (argument or --username)")
			}

			profile, err := appCtx.Accounts.Register(cmd.Context(), appCtx.Config.RelayURL, domain.ParticipantID(name))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with relay (fingerprint %s)\n", profile.ParticipantID, profile.Fingerprint)
			return nil
		},
	}
	return cmd
}
