// Package modular is the arbitrary-precision arithmetic kernel behind the
// ElGamal cryptosystem.
//
// Contents
//
//   - Square-and-multiply modular exponentiation (ModExp)
//   - Extended-Euclid modular inverse (ModInverse)
//   - Miller-Rabin probabilistic primality testing (IsProbablePrime)
//   - Random and safe prime generation (Generator, GenerateLargePrime)
//   - Distinct prime factors by trial division (Factorize)
//   - Primitive-root search (FindPrimitiveRoot)
//   - A cryptographically secure random source (Source)
//
// # Notes
//
// All functions are pure with respect to their inputs and never mutate the
// *big.Int values passed in. Randomness is always drawn from a Source; a nil
// Source means the process-wide crypto/rand backed default.
package modular
