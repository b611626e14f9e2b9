package modular

import (
	"errors"
	"math/big"
)

// TrialDivisionBound is the largest divisor Factorize tries before giving up
// on a composite cofactor.
const TrialDivisionBound = 1 << 20

// ErrNoPrimitiveRoot is returned when no generator exists below p, which only
// happens when p is not prime.
var ErrNoPrimitiveRoot = errors.New("modular: no primitive root found")

// Factorize returns the distinct prime factors of n in ascending order.
//
// Trial division stops as soon as the remaining cofactor is a probable prime,
// so n = 2q with q a large prime factors immediately. A composite cofactor
// without divisors up to TrialDivisionBound yields ErrPrimalitySearchExhausted.
func Factorize(n *big.Int, src *Source) ([]*big.Int, error) {
	if n.Sign() <= 0 {
		return nil, ErrInvalidModulus
	}
	var factors []*big.Int
	m := new(big.Int).Set(n)

	rest := func() (bool, error) {
		if m.Cmp(bigOne) == 0 {
			return true, nil
		}
		ok, err := IsProbablePrime(m, DefaultRounds, src)
		if err != nil || !ok {
			return false, err
		}
		factors = append(factors, new(big.Int).Set(m))
		return true, nil
	}

	done, err := rest()
	if err != nil || done {
		return factors, err
	}

	d := new(big.Int)
	q, r := new(big.Int), new(big.Int)
	sq := new(big.Int)
	for div := uint64(2); div <= TrialDivisionBound; div++ {
		if div > 2 && div%2 == 0 {
			continue
		}
		d.SetUint64(div)
		if sq.Mul(d, d).Cmp(m) > 0 {
			// No divisor up to sqrt(m): m itself is prime.
			factors = append(factors, new(big.Int).Set(m))
			return factors, nil
		}
		q.QuoRem(m, d, r)
		if r.Sign() != 0 {
			continue
		}
		factors = append(factors, new(big.Int).Set(d))
		for r.Sign() == 0 {
			m.Set(q)
			q.QuoRem(m, d, r)
		}
		done, err := rest()
		if err != nil || done {
			return factors, err
		}
	}
	return nil, ErrPrimalitySearchExhausted
}

// FindPrimitiveRoot returns the smallest generator of the multiplicative
// group modulo the prime p: the least g >= 2 with g^((p-1)/f) != 1 mod p for
// every distinct prime factor f of p-1.
func FindPrimitiveRoot(p *big.Int, src *Source) (*big.Int, error) {
	if p.Cmp(big.NewInt(3)) < 0 {
		return nil, ErrInvalidModulus
	}
	pMinusOne := new(big.Int).Sub(p, bigOne)
	factors, err := Factorize(pMinusOne, src)
	if err != nil {
		return nil, err
	}
	exps := make([]*big.Int, len(factors))
	for i, f := range factors {
		exps[i] = new(big.Int).Quo(pMinusOne, f)
	}

	for g := big.NewInt(2); g.Cmp(p) < 0; g.Add(g, bigOne) {
		if isGenerator(g, exps, p) {
			return g, nil
		}
	}
	return nil, ErrNoPrimitiveRoot
}

func isGenerator(g *big.Int, exps []*big.Int, p *big.Int) bool {
	for _, e := range exps {
		v, err := ModExp(g, e, p)
		if err != nil || v.Cmp(bigOne) == 0 {
			return false
		}
	}
	return true
}
