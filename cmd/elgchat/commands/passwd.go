package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func passwdCmd() *cobra.Command {
	var newPassphrase string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Reseal your private key under a new passphrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := appCtx.Identities.ChangePassphrase(passphrase, newPassphrase); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Passphrase changed")
			return nil
		},
	}
	cmd.Flags().StringVar(&newPassphrase, "new", "", "the new passphrase")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}
