package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailmesh/pkg/types"
)

var secret = []byte("the answer is 42")

func sample() *types.Message {
	return &types.Message{
		From:    "arthur@earth.planet",
		To:      []string{"trillian@earth.planet", "zaphod@univer.ze"},
		Subject: "dolphins",
		Data:    "so long and thanks for all the fish",
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t,
		"arthur@earth.planet\ntrillian@earth.planet,zaphod@univer.ze\ndolphins\nso long and thanks for all the fish",
		Canonical(sample()))
}

func TestSignVerify(t *testing.T) {
	msg := sample()
	tag, err := Sign(secret, msg)
	require.NoError(t, err)

	msg.Hash = tag
	require.NoError(t, Verify(secret, msg))

	assert.ErrorIs(t, Verify([]byte("other"), msg), ErrTagMismatch)
}

func TestVerify_DetectsChanges(t *testing.T) {
	base := sample()
	tag, err := Sign(secret, base)
	require.NoError(t, err)

	mutations := map[string]func(*types.Message){
		"data":    func(m *types.Message) { m.Data = "So long and thanks for all the fish" },
		"subject": func(m *types.Message) { m.Subject += "!" },
		"from":    func(m *types.Message) { m.From = "ford@earth.planet" },
		"to":      func(m *types.Message) { m.To = m.To[:1] },
	}
	for name, mutate := range mutations {
		m := base.Clone()
		m.Hash = tag
		mutate(m)
		assert.ErrorIs(t, Verify(secret, m), ErrTagMismatch, name)
	}
}

func TestVerify_NoHash(t *testing.T) {
	assert.ErrorIs(t, Verify(secret, sample()), ErrNoHash)

	m := sample()
	m.Hash = "***"
	assert.ErrorIs(t, Verify(secret, m), ErrTagMismatch)
}

func TestSign_NoSecret(t *testing.T) {
	_, err := Sign(nil, sample())
	assert.ErrorIs(t, err, ErrNoSecret)
}
