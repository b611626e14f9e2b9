package modular

import (
	"context"
	"math/big"
)

const (
	// MinRounds is the lowest Miller-Rabin round count accepted by Generator.
	MinRounds = 5
	// DefaultRounds bounds the false-positive rate by 4^-40.
	DefaultRounds = 40

	// sieveLimit bounds the small primes used to discard candidates cheaply.
	sieveLimit = 2048
)

var (
	smallPrimes = primesBelow(sieveLimit)
	// sieveGroups packs small primes into products that fit a uint64 so a
	// candidate is reduced with one big division per group.
	sieveGroups = groupPrimes(smallPrimes)
)

type primeGroup struct {
	product *big.Int
	primes  []uint64
}

// IsProbablePrime runs rounds of Miller-Rabin with bases drawn uniformly from
// [2, n-2]. A composite passes with probability at most 4^-rounds.
func IsProbablePrime(n *big.Int, rounds int, src *Source) (bool, error) {
	if n.Cmp(bigTwo) < 0 {
		return false, nil
	}
	if n.Cmp(big.NewInt(4)) < 0 {
		return true, nil // 2 and 3
	}
	if n.Bit(0) == 0 {
		return false, nil
	}
	if rounds < 1 {
		rounds = 1
	}

	nMinusOne := new(big.Int).Sub(n, bigOne)
	nMinusTwo := new(big.Int).Sub(n, bigTwo)

	// n-1 = 2^s * d with d odd.
	s := 0
	d := new(big.Int).Set(nMinusOne)
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	for i := 0; i < rounds; i++ {
		a, err := src.Int(bigTwo, nMinusTwo)
		if err != nil {
			return false, err
		}
		x, err := ModExp(a, d, n)
		if err != nil {
			return false, err
		}
		if x.Cmp(bigOne) == 0 || x.Cmp(nMinusOne) == 0 {
			continue
		}
		witness := true
		for r := 1; r < s; r++ {
			x.Mul(x, x)
			x.Mod(x, n)
			if x.Cmp(nMinusOne) == 0 {
				witness = false
				break
			}
			if x.Cmp(bigOne) == 0 {
				break
			}
		}
		if witness {
			return false, nil
		}
	}
	return true, nil
}

// Generator searches for primes. The zero value uses the default source,
// DefaultRounds and an unbounded number of attempts.
type Generator struct {
	Source *Source
	// Rounds of Miller-Rabin per accepted candidate; raised to MinRounds if lower.
	Rounds int
	// MaxAttempts caps the number of random candidates drawn; 0 means no cap.
	MaxAttempts int
}

func (g Generator) rounds() int {
	switch {
	case g.Rounds == 0:
		return DefaultRounds
	case g.Rounds < MinRounds:
		return MinRounds
	default:
		return g.Rounds
	}
}

// LargePrime samples random odd integers of exactly bits bits until one is a
// probable prime.
func (g Generator) LargePrime(ctx context.Context, bits int) (*big.Int, error) {
	if bits < 2 {
		return nil, ErrInvalidBitLength
	}
	for attempt := 0; g.MaxAttempts == 0 || attempt < g.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := g.Source.Bits(bits, true)
		if err != nil {
			return nil, err
		}
		if bits > 2 {
			n.SetBit(n, 0, 1)
		}
		if divisibleBySmallPrime(n, nil) {
			continue
		}
		ok, err := IsProbablePrime(n, g.rounds(), g.Source)
		if err != nil {
			return nil, err
		}
		if ok {
			return n, nil
		}
	}
	return nil, ErrPrimalitySearchExhausted
}

// SafePrime returns a prime p of exactly bits bits such that (p-1)/2 is also
// prime. Both halves are sieved together before any Miller-Rabin round runs,
// and each is screened with a single round before the full count.
func (g Generator) SafePrime(ctx context.Context, bits int) (*big.Int, error) {
	if bits < 3 {
		return nil, ErrInvalidBitLength
	}
	rounds := g.rounds()
	p := new(big.Int)
	for attempt := 0; g.MaxAttempts == 0 || attempt < g.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := g.Source.Bits(bits-1, true)
		if err != nil {
			return nil, err
		}
		q.SetBit(q, 0, 1)
		p.Lsh(q, 1)
		p.SetBit(p, 0, 1)
		if bits > 12 && divisibleBySmallPrime(q, p) {
			continue
		}

		ok, err := bothProbablePrime(q, p, rounds, g.Source)
		if err != nil {
			return nil, err
		}
		if ok {
			return new(big.Int).Set(p), nil
		}
	}
	return nil, ErrPrimalitySearchExhausted
}

// bothProbablePrime screens q and p with one round each, then runs the full
// count on both.
func bothProbablePrime(q, p *big.Int, rounds int, src *Source) (bool, error) {
	for _, r := range []int{1, rounds} {
		for _, n := range []*big.Int{q, p} {
			ok, err := IsProbablePrime(n, r, src)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

// GenerateLargePrime is Generator{}.LargePrime.
func GenerateLargePrime(ctx context.Context, bits int) (*big.Int, error) {
	return Generator{}.LargePrime(ctx, bits)
}

// GenerateSafePrime is Generator{}.SafePrime.
func GenerateSafePrime(ctx context.Context, bits int) (*big.Int, error) {
	return Generator{}.SafePrime(ctx, bits)
}

// divisibleBySmallPrime reports whether n (or, when non-nil, companion) has a
// small prime factor other than itself.
func divisibleBySmallPrime(n, companion *big.Int) bool {
	rem := new(big.Int)
	for _, grp := range sieveGroups {
		rn := rem.Rem(n, grp.product).Uint64()
		var rc uint64
		if companion != nil {
			rc = new(big.Int).Rem(companion, grp.product).Uint64()
		}
		for _, sp := range grp.primes {
			if rn%sp == 0 && !(n.IsUint64() && n.Uint64() == sp) {
				return true
			}
			if companion != nil && rc%sp == 0 && !(companion.IsUint64() && companion.Uint64() == sp) {
				return true
			}
		}
	}
	return false
}

func primesBelow(limit int) []uint64 {
	composite := make([]bool, limit)
	var out []uint64
	for i := 2; i < limit; i++ {
		if composite[i] {
			continue
		}
		out = append(out, uint64(i))
		for j := i * i; j < limit; j += i {
			composite[j] = true
		}
	}
	return out
}

func groupPrimes(primes []uint64) []primeGroup {
	var groups []primeGroup
	cur := primeGroup{product: big.NewInt(1)}
	acc := uint64(1)
	for _, p := range primes {
		if acc > (1<<63)/p {
			groups = append(groups, cur)
			cur = primeGroup{product: big.NewInt(1)}
			acc = 1
		}
		acc *= p
		cur.product.SetUint64(acc)
		cur.primes = append(cur.primes, p)
	}
	if len(cur.primes) > 0 {
		groups = append(groups, cur)
	}
	return groups
}
