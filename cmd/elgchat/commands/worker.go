package commands

import (
	"github.com/spf13/cobra"

	"elgchat/internal/keygen"
)

// worker hosts the key-generation executor over JSON lines on stdin/stdout,
// for front ends that keep the prime search off their own event loop.
func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve key-generation requests as JSON lines on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx.Log.Debug().Msg("key-generation worker ready")
			return keygen.ServeJSON(cmd.Context(), appCtx.Keygen, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
