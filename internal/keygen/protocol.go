package keygen

import (
	"errors"
	"fmt"

	"elgchat/internal/domain"
)

// ActionGenerateKeys is the only request action understood by the executor.
const ActionGenerateKeys = "generateKeys"

var (
	// ErrUnknownAction is returned for requests with any other action.
	ErrUnknownAction = errors.New("keygen: unknown action")
	// ErrMissingPassword is returned when a request carries no password.
	ErrMissingPassword = errors.New("keygen: password required")
)

// Request asks the executor to generate and seal a key pair. ID is optional
// and echoed back in the Response.
type Request struct {
	ID       string `json:"id,omitempty"`
	Action   string `json:"action"`
	Password string `json:"password"`
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if r.Action != ActionGenerateKeys {
		return fmt.Errorf("%w %q", ErrUnknownAction, r.Action)
	}
	if r.Password == "" {
		return ErrMissingPassword
	}
	return nil
}

// Result is the payload of a successful response.
type Result struct {
	PublicKey               domain.PublicKey `json:"publicKey"`
	PrivateKey              string           `json:"privateKey"`
	ProtectedPrivateKeyBlob string           `json:"protectedPrivateKeyBlob"`
	KDF                     domain.KDFParams `json:"kdf"`
}

// Response is the single reply to a Request. Err carries the typed failure
// for in-process callers and is not serialised.
type Response struct {
	ID      string  `json:"id,omitempty"`
	Success bool    `json:"success"`
	Data    *Result `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
	Err     error   `json:"-"`
}

func failure(id string, err error) Response {
	return Response{ID: id, Success: false, Error: err.Error(), Err: err}
}
