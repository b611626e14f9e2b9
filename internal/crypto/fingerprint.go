package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"elgchat/internal/domain"
)

// fingerprintBytes is how much of the digest is shown to users.
const fingerprintBytes = 10

// PublicKeyFingerprint digests p, g and y of an ElGamal public key, each
// length-prefixed, and renders the first bytes as space-separated groups of
// four hex digits ("3f2a 91c0 ...") for reading aloud.
func PublicKeyFingerprint(pk domain.PublicKey) domain.Fingerprint {
	h := sha256.New()
	var n [4]byte
	for _, part := range []string{pk.P, pk.G, pk.Y} {
		binary.BigEndian.PutUint32(n[:], uint32(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	digits := hex.EncodeToString(h.Sum(nil)[:fingerprintBytes])

	var b strings.Builder
	for i := 0; i < len(digits); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+4])
	}
	return domain.Fingerprint(b.String())
}
