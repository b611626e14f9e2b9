package crypto

import "encoding/base64"

// EncodeBase64 and DecodeBase64 use the standard padded alphabet, the form
// blobs and bulk ciphertexts take on disk and on the wire.
func EncodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func DecodeBase64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }
