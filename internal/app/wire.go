package app

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"

	"elgchat/internal/crypto"
	"elgchat/internal/domain"
	"elgchat/internal/keygen"
	"elgchat/internal/relay"
	"elgchat/internal/services/account"
	"elgchat/internal/services/conversation"
	"elgchat/internal/services/identity"
	"elgchat/internal/store"
)

// ErrNoRelay is returned by RequireRelay when no relay URL is configured.
var ErrNoRelay = errors.New("no relay configured. use --relay")

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config Config
	Log    zerolog.Logger

	Keygen        *keygen.Executor
	Sealer        *crypto.Sealer
	Identities    *identity.Service
	IdentityStore domain.IdentityStore

	// Relay-backed parts; nil when Config.RelayURL is empty.
	Relay         domain.RelayClient
	Accounts      *account.Service
	Conversations *conversation.Service
}

// NewWire validates cfg, creates the home directory and constructs the
// dependency graph. The key-generation executor is started on ctx; call
// Close to stop it.
func NewWire(ctx context.Context, cfg Config, log zerolog.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	sealer, err := cfg.Sealer()
	if err != nil {
		return nil, err
	}

	// File-based stores
	identityStore := store.NewIdentityFileStore(cfg.Home)
	accountStore := store.NewAccountFileStore(cfg.Home)
	conversationStore := store.NewConversationFileStore(cfg.Home)
	publicKeyStore := store.NewPublicKeyFileStore(cfg.Home)

	exec, err := keygen.NewExecutor(keygen.Config{
		Bits:      cfg.BitLength,
		Generator: cfg.Generator(),
		Sealer:    sealer,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	if err := exec.Start(ctx); err != nil {
		return nil, err
	}

	w := &Wire{
		Config:        cfg,
		Log:           log,
		Keygen:        exec,
		Sealer:        sealer,
		Identities:    identity.New(identityStore, exec, sealer),
		IdentityStore: identityStore,
	}
	if cfg.RelayURL != "" {
		rc := relay.NewHTTP(cfg.RelayURL, cfg.HTTPTimeout)
		w.Relay = rc
		w.Accounts = account.New(w.Identities, accountStore, rc)
		w.Conversations = conversation.New(rc, conversationStore, publicKeyStore, nil, log)
	}
	return w, nil
}

// RequireRelay reports ErrNoRelay when the relay-backed services are absent.
func (w *Wire) RequireRelay() error {
	if w.Relay == nil {
		return ErrNoRelay
	}
	return nil
}

// Close stops the key-generation executor.
func (w *Wire) Close() {
	w.Keygen.Stop()
}
