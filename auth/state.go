// Package auth builds and reads the OAuth "state" correlation token that carries
// a wallet address through the provider's redirect.
package auth

import (
	"fmt"
	"strings"
	"treasure-hunt/errors"

	"github.com/golang-jwt/jwt/v5"
)

const stateIssuer = "treasure-hunt"

// PlainState uses the address itself as the state, as the legacy client expects.
type PlainState struct{}

func (PlainState) Encode(address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", fmt.Errorf("%w: missing address", errors.ErrInvalidRequest)
	}
	return address, nil
}

func (PlainState) Decode(state string) (string, error) {
	if strings.TrimSpace(state) == "" {
		return "", fmt.Errorf("%w: missing state", errors.ErrInvalidRequest)
	}
	return state, nil
}

// SignedState wraps the address in an HS256 token.
// No time-based claims are set, so the same address always yields the same state.
type SignedState struct {
	key []byte
}

func NewSignedState(secret string) SignedState {
	return SignedState{key: []byte(secret)}
}

type stateClaims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

func (s SignedState) Encode(address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", fmt.Errorf("%w: missing address", errors.ErrInvalidRequest)
	}
	claims := stateClaims{
		Address:          address,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: stateIssuer},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s SignedState) Decode(state string) (string, error) {
	if strings.TrimSpace(state) == "" {
		return "", fmt.Errorf("%w: missing state", errors.ErrInvalidRequest)
	}
	token, err := jwt.ParseWithClaims(state, &stateClaims{}, func(token *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(stateIssuer))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid || claims.Address == "" {
		return "", fmt.Errorf("%w: invalid state", errors.ErrInvalidRequest)
	}
	return claims.Address, nil
}
