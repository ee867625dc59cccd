package domain

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"treasure-hunt/errors"

	"golang.org/x/crypto/sha3"
)

var hexAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeAddress is the case-insensitive key form of a wallet address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidateAddress checks the 0x-hex form and, for mixed-case input,
// the EIP-55 checksum.
func ValidateAddress(address string) error {
	address = strings.TrimSpace(address)
	if !hexAddress.MatchString(address) {
		return fmt.Errorf("%w: malformed address %q", errors.ErrInvalidRequest, address)
	}
	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}
	if ChecksumAddress(address) != address {
		return fmt.Errorf("%w: bad checksum for %q", errors.ErrInvalidRequest, address)
	}
	return nil
}

// ChecksumAddress returns the EIP-55 mixed-case encoding of a 0x-hex address.
func ChecksumAddress(address string) string {
	lower := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(address), "0x"))
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hex.EncodeToString(hash.Sum(nil))

	out := []byte(lower)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}
