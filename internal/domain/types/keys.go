package types

// PublicKey is the wire form of an ElGamal public key. Integers are
// decimal strings so generic JSON parsers do not lose precision.
type PublicKey struct {
	P string `json:"p"`
	G string `json:"g"`
	Y string `json:"y"`
}

// Ciphertext is the wire form of one ElGamal block. P is present when the
// modulus is not implied by context.
type Ciphertext struct {
	A string `json:"a"`
	B string `json:"b"`
	P string `json:"p,omitempty"`
}

// KDFParams names the password KDF a protected blob was sealed under.
type KDFParams struct {
	Name       string `json:"name"`
	Iterations int    `json:"iterations,omitempty"`
}
