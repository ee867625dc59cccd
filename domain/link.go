package domain

import (
	"maps"
	"slices"

	"github.com/samber/lo"
)

// IdentityLink ties a wallet address to an external display name.
type IdentityLink struct {
	Address  string `json:"address"`
	Identity string `json:"identity"`
}

// Links maps a normalized address to its identity.
// Kept as a bijection: an identity appears at most once as a value.
type Links map[string]string

// Clone returns an independent copy, never nil.
func (l Links) Clone() Links {
	out := make(Links, len(l))
	maps.Copy(out, l)
	return out
}

// AddressOf finds the address an identity is linked to.
func (l Links) AddressOf(identity string) (string, bool) {
	return lo.FindKey(l, identity)
}

// AsList returns the links sorted by address.
func (l Links) AsList() []IdentityLink {
	addresses := lo.Keys(l)
	slices.Sort(addresses)
	return lo.Map(addresses, func(address string, _ int) IdentityLink {
		return IdentityLink{Address: address, Identity: l[address]}
	})
}

// Dataset is everything the persistent store holds.
type Dataset struct {
	Links    Links
	Messages []ChatMessage
}
