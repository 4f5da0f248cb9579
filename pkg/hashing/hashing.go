package hashing

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/sha3"
)

// Algorithm identifies a supported digest algorithm.
type Algorithm string

const (
	MD5     Algorithm = "md5"
	SHA1    Algorithm = "sha1"
	SHA256  Algorithm = "sha256"
	SHA512  Algorithm = "sha512"
	SHA3256 Algorithm = "sha3-256"
)

func newHash(alg Algorithm) (hash.Hash, error) {
	switch alg {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case SHA3256:
		return sha3.New256(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", alg)
	}
}

// Sum computes the digest of data with the given algorithm.
func Sum(alg Algorithm, data []byte) ([]byte, error) {
	h, err := newHash(alg)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// SumReader computes the digest of everything readable from r.
func SumReader(alg Algorithm, r io.Reader) ([]byte, error) {
	h, err := newHash(alg)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return nil, fmt.Errorf("failed to hash stream: %w", err)
	}
	return h.Sum(nil), nil
}

// SumHex computes the digest of data and returns it hex-encoded.
func SumHex(alg Algorithm, data []byte) (string, error) {
	sum, err := Sum(alg, data)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// SumBase64 computes the digest of data and returns it base64-encoded.
func SumBase64(alg Algorithm, data []byte) (string, error) {
	sum, err := Sum(alg, data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sum), nil
}

// HMAC computes a keyed HMAC of data with the given algorithm.
func HMAC(alg Algorithm, key, data []byte) ([]byte, error) {
	switch alg {
	case MD5, SHA1, SHA256, SHA512, SHA3256:
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", alg)
	}
	mac := hmac.New(func() hash.Hash {
		h, _ := newHash(alg)
		return h
	}, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// HMACEqual reports whether the HMAC of data under key equals expected,
// in constant time.
func HMACEqual(alg Algorithm, key, data, expected []byte) (bool, error) {
	sum, err := HMAC(alg, key, data)
	if err != nil {
		return false, err
	}
	return hmac.Equal(sum, expected), nil
}
