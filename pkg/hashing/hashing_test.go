package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumHex(t *testing.T) {
	got, err := SumHex(SHA256, []byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)

	got, err = SumHex(MD5, []byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", got)
}

func TestSumBase64(t *testing.T) {
	got, err := SumBase64(SHA256, []byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, "unghv4+Pz+pBQUDeXa4iI7ADYaOWF3qctBD/YfIAFa0=", got)
}

func TestSumReaderMatchesSum(t *testing.T) {
	direct, err := Sum(SHA512, []byte("streamed content"))
	assert.NoError(t, err)

	streamed, err := SumReader(SHA512, strings.NewReader("streamed content"))
	assert.NoError(t, err)
	assert.Equal(t, direct, streamed)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := Sum(Algorithm("whirlpool"), []byte("x"))
	assert.Error(t, err)
}

func TestHMACEqual(t *testing.T) {
	key := []byte("secret")
	sum, err := HMAC(SHA256, key, []byte("payload"))
	assert.NoError(t, err)

	ok, err := HMACEqual(SHA256, key, []byte("payload"), sum)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = HMACEqual(SHA256, key, []byte("tampered"), sum)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSHA3IsNotSHA256(t *testing.T) {
	a, err := Sum(SHA256, []byte("abc"))
	assert.NoError(t, err)
	b, err := Sum(SHA3256, []byte("abc"))
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
