package auth

import (
	"testing"
	"treasure-hunt/errors"

	"github.com/stretchr/testify/require"
)

func TestPlainState(t *testing.T) {
	req := require.New(t)
	codec := PlainState{}

	state, err := codec.Encode("0xabc")
	req.NoError(err)
	req.Equal("0xabc", state)

	address, err := codec.Decode(state)
	req.NoError(err)
	req.Equal("0xabc", address)

	_, err = codec.Decode("  ")
	req.ErrorIs(err, errors.ErrInvalidRequest)
	_, err = codec.Encode("")
	req.ErrorIs(err, errors.ErrInvalidRequest)
}

func TestSignedState_IsDeterministicAndVerified(t *testing.T) {
	req := require.New(t)
	codec := NewSignedState("a-long-enough-state-secret")

	// Given the same address encoded twice
	first, err := codec.Encode("0xabc")
	req.NoError(err)
	second, err := codec.Encode("0xabc")
	req.NoError(err)

	// Then the state is stable and decodes back to the address
	req.Equal(first, second)
	address, err := codec.Decode(first)
	req.NoError(err)
	req.Equal("0xabc", address)
}

func TestSignedState_RejectsForeignTokens(t *testing.T) {
	req := require.New(t)
	codec := NewSignedState("a-long-enough-state-secret")
	foreign := NewSignedState("another-secret")

	state, err := foreign.Encode("0xabc")
	req.NoError(err)

	_, err = codec.Decode(state)
	req.ErrorIs(err, errors.ErrInvalidRequest)

	// A bare address is not accepted once states are signed
	_, err = codec.Decode("0xabc")
	req.ErrorIs(err, errors.ErrInvalidRequest)
}
