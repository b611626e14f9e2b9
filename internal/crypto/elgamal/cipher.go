package elgamal

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"elgchat/internal/crypto/modular"
	"elgchat/internal/domain"
	"elgchat/internal/util/memzero"
)

var (
	// ErrEncodingOverflow is returned when the encoded message is not below p.
	ErrEncodingOverflow = errors.New("elgamal: message too large for modulus")
	// ErrDecryptionFailure is returned when a ciphertext does not decrypt to a
	// well-formed block under the given key.
	ErrDecryptionFailure = errors.New("elgamal: decryption failed")
)

// blockMarker prefixes every encoded block so leading zero bytes survive the
// trip through an integer, and so most wrong-key decryptions are detected.
const blockMarker = 0x01

// Ciphertext is one encrypted block: a = g^k mod p, b = m*y^k mod p.
type Ciphertext struct {
	A *big.Int
	B *big.Int
	P *big.Int // modulus; may be nil when implied by the recipient key
}

// Capacity returns how many message bytes fit in a single block under p.
func Capacity(p *big.Int) int {
	c := (p.BitLen()-1)/8 - 1
	if c < 0 {
		return 0
	}
	return c
}

// Encrypt encrypts one block for pub with a fresh random k in [2, p-2].
func Encrypt(src *modular.Source, msg []byte, pub PublicKey) (Ciphertext, error) {
	if pub.P == nil || pub.G == nil || pub.Y == nil {
		return Ciphertext{}, fmt.Errorf("%w: incomplete public key", ErrKeyFormat)
	}
	p := pub.P
	if !usableY(pub.Y, p) {
		return Ciphertext{}, fmt.Errorf("%w: y out of range", ErrKeyFormat)
	}
	m := encodeBlock(msg)
	if m.Cmp(p) >= 0 {
		return Ciphertext{}, ErrEncodingOverflow
	}
	k, err := src.Int(bigTwo, new(big.Int).Sub(p, bigTwo))
	if err != nil {
		return Ciphertext{}, err
	}
	defer memzero.Int(k)

	a, err := modular.ModExp(pub.G, k, p)
	if err != nil {
		return Ciphertext{}, err
	}
	s, err := modular.ModExp(pub.Y, k, p)
	if err != nil {
		return Ciphertext{}, err
	}
	b := new(big.Int).Mul(m, s)
	b.Mod(b, p)
	return Ciphertext{A: a, B: b, P: new(big.Int).Set(p)}, nil
}

// Decrypt recovers the block encrypted under the public key matching priv,
// whose modulus is p. A ciphertext carrying a different modulus fails.
func Decrypt(ct Ciphertext, priv PrivateKey, p *big.Int) ([]byte, error) {
	if p == nil || p.Sign() <= 0 {
		return nil, fmt.Errorf("%w: missing modulus", ErrKeyFormat)
	}
	if ct.A == nil || ct.B == nil || priv.X == nil {
		return nil, ErrDecryptionFailure
	}
	if ct.P != nil && ct.P.Cmp(p) != 0 {
		return nil, fmt.Errorf("%w: modulus mismatch", ErrDecryptionFailure)
	}
	if ct.A.Sign() <= 0 || ct.A.Cmp(p) >= 0 || ct.B.Sign() <= 0 || ct.B.Cmp(p) >= 0 {
		return nil, fmt.Errorf("%w: component out of range", ErrDecryptionFailure)
	}
	s, err := modular.ModExp(ct.A, priv.X, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}
	defer memzero.Int(s)
	if s.Sign() == 0 {
		return nil, ErrDecryptionFailure
	}
	inv, err := modular.ModInverse(s, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}
	m := inv.Mul(inv, ct.B)
	m.Mod(m, p)
	return decodeBlock(m)
}

// EncryptBlocks splits msg into Capacity(p)-sized blocks and encrypts each.
// An empty message still yields one block.
func EncryptBlocks(src *modular.Source, msg []byte, pub PublicKey) ([]Ciphertext, error) {
	if pub.P == nil {
		return nil, fmt.Errorf("%w: incomplete public key", ErrKeyFormat)
	}
	size := Capacity(pub.P)
	if size == 0 {
		return nil, ErrEncodingOverflow
	}
	out := make([]Ciphertext, 0, len(msg)/size+1)
	for off := 0; ; off += size {
		end := min(off+size, len(msg))
		ct, err := Encrypt(src, msg[off:end], pub)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
		if end == len(msg) {
			return out, nil
		}
	}
}

// DecryptBlocks decrypts and concatenates the blocks produced by EncryptBlocks.
func DecryptBlocks(cts []Ciphertext, priv PrivateKey, p *big.Int) ([]byte, error) {
	if len(cts) == 0 {
		return nil, fmt.Errorf("%w: no blocks", ErrDecryptionFailure)
	}
	var out []byte
	for _, ct := range cts {
		blk, err := Decrypt(ct, priv, p)
		if err != nil {
			return nil, err
		}
		out = append(out, blk...)
	}
	return out, nil
}

func encodeBlock(msg []byte) *big.Int {
	buf := make([]byte, 0, len(msg)+1)
	buf = append(buf, blockMarker)
	buf = append(buf, msg...)
	return new(big.Int).SetBytes(buf)
}

func decodeBlock(m *big.Int) ([]byte, error) {
	buf := m.Bytes()
	if len(buf) == 0 || buf[0] != blockMarker {
		return nil, ErrDecryptionFailure
	}
	return buf[1:], nil
}

// Wire returns the decimal-string form of the ciphertext.
func (ct Ciphertext) Wire() domain.Ciphertext {
	w := domain.Ciphertext{A: ct.A.String(), B: ct.B.String()}
	if ct.P != nil {
		w.P = ct.P.String()
	}
	return w
}

// String returns the compact "a;b;p" form.
func (ct Ciphertext) String() string {
	w := ct.Wire()
	return w.A + ";" + w.B + ";" + w.P
}

// ParseCiphertext validates a wire ciphertext.
func ParseCiphertext(w domain.Ciphertext) (Ciphertext, error) {
	a, err := parseDecimal("a", w.A)
	if err != nil {
		return Ciphertext{}, err
	}
	b, err := parseDecimal("b", w.B)
	if err != nil {
		return Ciphertext{}, err
	}
	ct := Ciphertext{A: a, B: b}
	if w.P != "" {
		if ct.P, err = parseDecimal("p", w.P); err != nil {
			return Ciphertext{}, err
		}
	}
	return ct, nil
}

// ParseCiphertextString parses the compact "a;b;p" form; p may be empty.
func ParseCiphertextString(s string) (Ciphertext, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 3 {
		return Ciphertext{}, fmt.Errorf("%w: want a;b;p", ErrKeyFormat)
	}
	return ParseCiphertext(domain.Ciphertext{A: parts[0], B: parts[1], P: parts[2]})
}

// WireBlocks converts a block list to its wire form.
func WireBlocks(cts []Ciphertext) []domain.Ciphertext {
	out := make([]domain.Ciphertext, len(cts))
	for i, ct := range cts {
		out[i] = ct.Wire()
	}
	return out
}

// ParseBlocks parses a wire block list.
func ParseBlocks(ws []domain.Ciphertext) ([]Ciphertext, error) {
	out := make([]Ciphertext, len(ws))
	for i, w := range ws {
		ct, err := ParseCiphertext(w)
		if err != nil {
			return nil, err
		}
		out[i] = ct
	}
	return out, nil
}
