package domain

import (
	"testing"
	"treasure-hunt/errors"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	req := require.New(t)
	req.Equal("0xabc", NormalizeAddress(" 0xABC "))
	req.Equal("0xabc", NormalizeAddress("0xabc"))
}

func TestChecksumAddress_EIP55Vectors(t *testing.T) {
	req := require.New(t)
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, v := range vectors {
		req.Equal(v, ChecksumAddress(NormalizeAddress(v)))
		req.NoError(ValidateAddress(v))
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{name: "all lower case", address: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", valid: true},
		{name: "all upper case", address: "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", valid: true},
		{name: "broken checksum", address: "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", valid: false},
		{name: "too short", address: "0xabc", valid: false},
		{name: "missing prefix", address: "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", valid: false},
		{name: "not hex", address: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateAddress(tt.address)
			if tt.valid {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, errors.ErrInvalidRequest)
		})
	}
}
