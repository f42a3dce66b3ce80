package svea

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"hash"
	"strings"
)

var ErrNoSupportedAlgorithm = errors.New("no supported hash algorithm")

type Algorithm string

const (
	AlgorithmSHA512 Algorithm = "SHA-512"
	AlgorithmSHA256 Algorithm = "SHA-256"
	AlgorithmSHA1   Algorithm = "SHA-1"
	AlgorithmMD5    Algorithm = "MD5"
)

// algorithmPriority is a strong-to-weak fallback list. The gateway may be
// restricted to a weaker set than ours, so the order is a compatibility
// requirement with the remote end; never reorder it.
var algorithmPriority = []Algorithm{
	AlgorithmSHA512,
	AlgorithmSHA256,
	AlgorithmSHA1,
	AlgorithmMD5,
}

// SelectAlgorithm returns the strongest algorithm present in the supported
// set. Names are matched case-insensitively with or without the dash
// ("sha512" and "SHA-512" are the same algorithm).
func SelectAlgorithm(supported []string) (Algorithm, error) {
	available := make(map[string]bool, len(supported))
	for _, name := range supported {
		available[normalizeAlgorithmName(name)] = true
	}
	for _, candidate := range algorithmPriority {
		if available[normalizeAlgorithmName(string(candidate))] {
			return candidate, nil
		}
	}
	return "", ErrNoSupportedAlgorithm
}

// ComputeHash concatenates each value with a trailing '&', in the exact order
// given, appends the shared secret followed by '&', and returns the uppercase
// hex digest. The same values in a different order produce a different,
// incompatible hash.
func ComputeHash(values []string, secret string, algorithm Algorithm) string {
	var b strings.Builder
	for _, value := range values {
		b.WriteString(value)
		b.WriteByte('&')
	}
	b.WriteString(secret)
	b.WriteByte('&')

	h := newHasher(algorithm)
	h.Write([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

func newHasher(algorithm Algorithm) hash.Hash {
	switch algorithm {
	case AlgorithmSHA512:
		return sha512.New()
	case AlgorithmSHA256:
		return sha256.New()
	case AlgorithmSHA1:
		return sha1.New()
	case AlgorithmMD5:
		return md5.New()
	default:
		return sha512.New()
	}
}

func normalizeAlgorithmName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "-", "")
}
