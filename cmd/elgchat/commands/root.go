package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"elgchat/internal/app"
	"elgchat/internal/logging"
	"elgchat/internal/services/identity"
)

var (
	home       string
	passphrase string
	appCtx     *app.Wire

	relayURL string
	username string
	bits     int
	kdf      string
	logLevel string
)

// Execute runs the CLI against the process arguments and standard streams.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes one CLI invocation with explicit arguments and streams.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer func() {
		if appCtx != nil {
			appCtx.Close()
			appCtx = nil
		}
	}()
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "elgchat",
		Short:        "End-to-end encrypted group chat CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := app.DefaultHome()
				if err != nil {
					return err
				}
				home = dir
			}
			cfg, err := app.LoadConfig(home)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)

			log, err := logging.New(cfg.LogLevel, cmd.ErrOrStderr(), cfg.LogJSON)
			if err != nil {
				return err
			}
			appCtx, err = app.NewWire(cmd.Context(), cfg, log)
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.elgchat)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&username, "username", "", "participant id on the relay")
	root.PersistentFlags().IntVar(&bits, "bits", 0, "modulus size for new keys (default 1024)")
	root.PersistentFlags().StringVar(&kdf, "kdf", "", "passphrase KDF: pbkdf2, argon2id or scrypt")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		registerCmd(),
		passwdCmd(),
		createCmd(),
		conversationsCmd(),
		sendCmd(),
		sendDirectCmd(),
		recvCmd(),
		workerCmd(),
	)
	return root
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *app.Config) {
	flags := cmd.Flags()
	if flags.Changed("relay") {
		cfg.RelayURL = relayURL
	}
	if flags.Changed("username") {
		cfg.Username = username
	}
	if flags.Changed("bits") {
		cfg.BitLength = bits
	}
	if flags.Changed("kdf") {
		cfg.KDF = kdf
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}

// unlock opens the identity for a relay-backed command. The caller closes
// the returned session.
func unlock() (*identity.Session, error) {
	if err := requirePassphrase(); err != nil {
		return nil, err
	}
	if err := appCtx.RequireRelay(); err != nil {
		return nil, err
	}
	return appCtx.Identities.Unlock(passphrase)
}
