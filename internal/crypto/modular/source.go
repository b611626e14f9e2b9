package modular

import (
	"crypto/cipher"
	"fmt"
	"io"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"
)

// Source draws cryptographically secure randomness for the kernel.
//
// It wraps a kyber random stream. The stream panics when every underlying
// reader fails; Source turns that into ErrEntropyFailure.
type Source struct {
	stream cipher.Stream
}

var defaultSource = &Source{stream: random.New()}

// NewSource returns a Source mixing the given readers. With no readers it
// reads from crypto/rand.
func NewSource(readers ...io.Reader) *Source {
	return &Source{stream: random.New(readers...)}
}

// Default returns the crypto/rand backed source used when a nil *Source is
// passed.
func Default() *Source { return defaultSource }

// orDefault lets callers pass a nil *Source.
func (s *Source) orDefault() *Source {
	if s == nil {
		return defaultSource
	}
	return s
}

// Read fills p with random bytes. It implements io.Reader so the same source
// can feed salts, nonces and sender keys.
func (s *Source) Read(p []byte) (n int, err error) {
	s = s.orDefault()
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %v", ErrEntropyFailure, r)
		}
	}()
	random.Bytes(p, s.stream)
	return len(p), nil
}

// Bits returns a random integer of at most bitlen bits, or exactly bitlen bits
// when exact is set.
func (s *Source) Bits(bitlen int, exact bool) (v *big.Int, err error) {
	s = s.orDefault()
	if bitlen <= 0 {
		return nil, ErrInvalidBitLength
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrEntropyFailure, r)
		}
	}()
	return new(big.Int).SetBytes(random.Bits(uint(bitlen), exact, s.stream)), nil
}

// Int returns a uniformly random integer in the closed range [min, max].
func (s *Source) Int(min, max *big.Int) (v *big.Int, err error) {
	s = s.orDefault()
	if min.Cmp(max) > 0 {
		return nil, fmt.Errorf("modular: empty range [%s, %s]", min, max)
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrEntropyFailure, r)
		}
	}()
	// random.Int samples (0, mod), so sampling (0, span+1) and subtracting
	// one gives [0, span].
	span := new(big.Int).Sub(max, min)
	span.Add(span, bigOne)
	bound := new(big.Int).Add(span, bigOne)
	r := random.Int(bound, s.stream)
	r.Sub(r, bigOne)
	return r.Add(r, min), nil
}

// RandomInRange is Int on src, which may be nil.
func RandomInRange(src *Source, min, max *big.Int) (*big.Int, error) {
	return src.Int(min, max)
}
