package securechannel

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_EncodeParse(t *testing.T) {
	p, err := NewParams(rand.Reader)
	require.NoError(t, err)

	plain := p.Encode()
	enc := base64.StdEncoding
	wantLen := len("ok ") + enc.EncodedLen(ChallengeSize) + 1 + enc.EncodedLen(KeySize) + 1 + enc.EncodedLen(IVSize)
	assert.Len(t, plain, wantLen)

	parsed, err := ParseParams(plain)
	require.NoError(t, err)
	assert.Equal(t, p.Challenge, parsed.Challenge)
	assert.Equal(t, p.Key, parsed.Key)
	assert.Equal(t, p.IV, parsed.IV)
}

func TestParseParams_Malformed(t *testing.T) {
	p, err := NewParams(bytes.NewReader(bytes.Repeat([]byte{7}, 80)))
	require.NoError(t, err)
	good := string(p.Encode())

	cases := map[string]string{
		"empty":         "",
		"no prefix":     strings.TrimPrefix(good, "ok "),
		"truncated":     good[:50],
		"bad separator": good[:47] + "_" + good[48:],
		"bad base64":    "ok " + strings.Repeat("!", 44) + good[47:],
		"short iv":      good[:len(good)-8],
	}
	for name, in := range cases {
		_, err := ParseParams([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, name)
		assert.ErrorIs(t, err, ErrHandshake, name)
	}
}

func TestSealOpen(t *testing.T) {
	key := serverKey(t)
	p, err := NewParams(nil)
	require.NoError(t, err)

	line, err := Seal(&key.PublicKey, p)
	require.NoError(t, err)
	assert.NotContains(t, line, " ")

	opened, err := Open(key, line)
	require.NoError(t, err)
	assert.Equal(t, p.EncodedChallenge(), opened.EncodedChallenge())

	_, err = Open(key, "not base64!")
	assert.ErrorIs(t, err, ErrMalformed)

	raw, _ := base64.StdEncoding.DecodeString(line)
	raw[len(raw)/2] ^= 0xff
	_, err = Open(key, base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrHandshake)
}
