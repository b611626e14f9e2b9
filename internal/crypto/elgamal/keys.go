package elgamal

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"elgchat/internal/crypto/modular"
	"elgchat/internal/domain"
	"elgchat/internal/util/memzero"
)

const (
	// MinBits is the smallest modulus accepted for key generation. A 384-bit
	// modulus still carries a hex-encoded 16-byte sender key in one block.
	MinBits = 384
	// DefaultBits is the modulus size used when none is configured.
	DefaultBits = 1024
)

var (
	// ErrKeyFormat is returned for missing, non-decimal or out-of-range key
	// components.
	ErrKeyFormat = errors.New("elgamal: malformed key")
	// ErrBitLength is returned when a requested modulus is below MinBits.
	ErrBitLength = fmt.Errorf("elgamal: modulus must be at least %d bits", MinBits)
)

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// PublicKey is (p, g, y) with p prime, g a generator and y = g^x mod p.
type PublicKey struct {
	P *big.Int
	G *big.Int
	Y *big.Int
}

// PrivateKey is the secret exponent x, 1 <= x <= p-2.
type PrivateKey struct {
	X *big.Int
}

// KeyPair is a public key and its matching private key.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// GenerateKeys picks a safe prime p of the requested size, its least
// primitive root g, and a random x in [1, p-2].
//
// A safe prime keeps the factorisation of p-1 trivial, which the
// primitive-root search depends on.
func GenerateKeys(ctx context.Context, gen modular.Generator, bits int) (KeyPair, error) {
	if bits < MinBits {
		return KeyPair{}, ErrBitLength
	}
	p, err := gen.SafePrime(ctx, bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate prime: %w", err)
	}
	g, err := modular.FindPrimitiveRoot(p, gen.Source)
	if err != nil {
		return KeyPair{}, fmt.Errorf("find primitive root: %w", err)
	}
	// x = (p-1)/2 gives y = p-1, which ParsePublicKey refuses; draw again.
	pMinusOne := new(big.Int).Sub(p, bigOne)
	var x, y *big.Int
	for {
		if x, err = gen.Source.Int(bigOne, new(big.Int).Sub(p, bigTwo)); err != nil {
			return KeyPair{}, err
		}
		if y, err = modular.ModExp(g, x, p); err != nil {
			return KeyPair{}, err
		}
		if y.Cmp(pMinusOne) != 0 {
			break
		}
	}
	return KeyPair{
		Public:  PublicKey{P: p, G: g, Y: y},
		Private: PrivateKey{X: x},
	}, nil
}

// Validate checks the key pair is internally consistent: y == g^x mod p.
func (kp KeyPair) Validate() error {
	if err := kp.Private.check(kp.Public.P); err != nil {
		return err
	}
	y, err := modular.ModExp(kp.Public.G, kp.Private.X, kp.Public.P)
	if err != nil {
		return err
	}
	if y.Cmp(kp.Public.Y) != 0 {
		return fmt.Errorf("%w: private key does not match public key", ErrKeyFormat)
	}
	return nil
}

// Wire returns the decimal-string form of the key.
func (pk PublicKey) Wire() domain.PublicKey {
	return domain.PublicKey{P: pk.P.String(), G: pk.G.String(), Y: pk.Y.String()}
}

// ParsePublicKey validates a wire public key. It checks structure and ranges
// only (2 <= g < p, 2 <= y <= p-2); primality of p is not re-tested.
func ParsePublicKey(w domain.PublicKey) (PublicKey, error) {
	p, err := parseDecimal("p", w.P)
	if err != nil {
		return PublicKey{}, err
	}
	if p.Cmp(big.NewInt(5)) < 0 || p.Bit(0) == 0 {
		return PublicKey{}, fmt.Errorf("%w: p must be an odd prime", ErrKeyFormat)
	}
	g, err := parseDecimal("g", w.G)
	if err != nil {
		return PublicKey{}, err
	}
	if g.Cmp(bigTwo) < 0 || g.Cmp(p) >= 0 {
		return PublicKey{}, fmt.Errorf("%w: g out of range", ErrKeyFormat)
	}
	y, err := parseDecimal("y", w.Y)
	if err != nil {
		return PublicKey{}, err
	}
	if !usableY(y, p) {
		return PublicKey{}, fmt.Errorf("%w: y out of range", ErrKeyFormat)
	}
	return PublicKey{P: p, G: g, Y: y}, nil
}

// String returns x in decimal. This is the serialised form that gets sealed.
func (k PrivateKey) String() string {
	if k.X == nil {
		return ""
	}
	return k.X.String()
}

// ParsePrivateKey parses a decimal private exponent.
func ParsePrivateKey(s string) (PrivateKey, error) {
	x, err := parseDecimal("x", s)
	if err != nil {
		return PrivateKey{}, err
	}
	if x.Sign() <= 0 {
		return PrivateKey{}, fmt.Errorf("%w: x must be positive", ErrKeyFormat)
	}
	return PrivateKey{X: x}, nil
}

// Wipe overwrites x in place.
func (k PrivateKey) Wipe() {
	memzero.Int(k.X)
}

func (k PrivateKey) check(p *big.Int) error {
	if k.X == nil || p == nil {
		return fmt.Errorf("%w: missing x or p", ErrKeyFormat)
	}
	if k.X.Sign() <= 0 || k.X.Cmp(new(big.Int).Sub(p, bigOne)) >= 0 {
		return fmt.Errorf("%w: x out of range", ErrKeyFormat)
	}
	return nil
}

func parseDecimal(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrKeyFormat, name)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a decimal integer", ErrKeyFormat, name)
	}
	return v, nil
}

// usableY reports whether 2 <= y <= p-2. With y = 1 or y = p-1 every y^k is
// ±1, so b would carry the encoded message in the clear.
func usableY(y, p *big.Int) bool {
	return y.Cmp(bigTwo) >= 0 && y.Cmp(new(big.Int).Sub(p, bigTwo)) <= 0
}
