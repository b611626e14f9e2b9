package modular

import (
	"errors"
	"math/big"
)

var (
	// ErrInvalidModulus is returned when a modulus is zero or negative.
	ErrInvalidModulus = errors.New("modular: modulus must be positive")
	// ErrNegativeExponent is returned by ModExp for exponents below zero.
	ErrNegativeExponent = errors.New("modular: exponent must be non-negative")
	// ErrNotInvertible is returned when gcd(a, modulus) != 1.
	ErrNotInvertible = errors.New("modular: value has no inverse for modulus")
	// ErrInvalidBitLength is returned for bit lengths too small to be useful.
	ErrInvalidBitLength = errors.New("modular: invalid bit length")
	// ErrEntropyFailure is returned when the random source cannot produce bytes.
	ErrEntropyFailure = errors.New("modular: entropy source failure")
	// ErrPrimalitySearchExhausted is returned when a bounded search gives up.
	ErrPrimalitySearchExhausted = errors.New("modular: primality search exhausted")
)

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// ModExp computes base^exponent mod modulus by right-to-left square and
// multiply. It returns 0 when modulus is 1.
func ModExp(base, exponent, modulus *big.Int) (*big.Int, error) {
	if modulus.Sign() <= 0 {
		return nil, ErrInvalidModulus
	}
	if exponent.Sign() < 0 {
		return nil, ErrNegativeExponent
	}
	if modulus.Cmp(bigOne) == 0 {
		return new(big.Int), nil
	}

	result := big.NewInt(1)
	b := new(big.Int).Mod(base, modulus)
	for i := 0; i < exponent.BitLen(); i++ {
		if exponent.Bit(i) == 1 {
			result.Mul(result, b)
			result.Mod(result, modulus)
		}
		b.Mul(b, b)
		b.Mod(b, modulus)
	}
	return result, nil
}

// ModInverse returns x in [0, modulus) with a*x ≡ 1 (mod modulus), using the
// extended Euclidean algorithm.
func ModInverse(a, modulus *big.Int) (*big.Int, error) {
	if modulus.Sign() <= 0 {
		return nil, ErrInvalidModulus
	}

	// Invariant: oldR = oldS*a (mod modulus), r = s*a (mod modulus).
	oldR, r := new(big.Int).Mod(a, modulus), new(big.Int).Set(modulus)
	oldS, s := big.NewInt(1), big.NewInt(0)
	q, tmp := new(big.Int), new(big.Int)
	for r.Sign() != 0 {
		q.Quo(oldR, r)

		tmp.Mul(q, r)
		oldR, r = r, tmp.Sub(oldR, tmp)
		tmp = new(big.Int)

		tmp.Mul(q, s)
		oldS, s = s, tmp.Sub(oldS, tmp)
		tmp = new(big.Int)
	}
	if oldR.Cmp(bigOne) != 0 {
		return nil, ErrNotInvertible
	}
	return oldS.Mod(oldS, modulus), nil
}
