package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"treasure-hunt/domain"
	"treasure-hunt/domain/event"
	"treasure-hunt/errors"
	"treasure-hunt/repositories"
)

type RelayMode string

const (
	// RelayVerbatim forwards any JSON object a client sends.
	RelayVerbatim RelayMode = "verbatim"
	// RelayValidated rebuilds client events from server state before forwarding them.
	RelayValidated RelayMode = "validated"
)

// RelayService implements contract.RelayFilter.
type RelayService struct {
	mode            RelayMode
	links           repositories.ILinkRepository
	messages        repositories.IMessageRepository
	log             *slog.Logger
	strictAddresses bool
}

func NewRelayService(
	mode RelayMode,
	links repositories.ILinkRepository,
	messages repositories.IMessageRepository,
	log *slog.Logger,
	strictAddresses bool,
) *RelayService {
	return &RelayService{mode: mode, links: links, messages: messages, log: log, strictAddresses: strictAddresses}
}

// Filter returns the payload to relay, or an error when it must be dropped.
func (s *RelayService) Filter(_ context.Context, payload []byte) ([]byte, error) {
	if s.mode == RelayVerbatim {
		var object map[string]json.RawMessage
		if err := json.Unmarshal(payload, &object); err != nil {
			return nil, fmt.Errorf("%w: payload is not a JSON object", errors.ErrInvalidRequest)
		}
		return payload, nil
	}

	decoded, err := event.Decode(payload)
	if err != nil {
		return nil, err
	}
	rebuilt, err := s.revalidate(decoded)
	if err != nil {
		return nil, err
	}
	return event.Encode(rebuilt)
}

func (s *RelayService) revalidate(e event.Event) (event.Event, error) {
	switch e := e.(type) {
	case event.UserConnected:
		address, err := s.address(e.Address)
		if err != nil {
			return nil, err
		}
		return event.UserConnected{Address: address}, nil

	case event.NewChatMessage:
		// Only messages that went through Post exist, and the stored copy wins
		stored, ok := s.messages.Get(e.Message.ID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown chat message %q", errors.ErrNotFound, e.Message.ID)
		}
		return event.NewChatMessage{Message: stored}, nil

	case event.TreasureClaimed:
		claimant, err := s.address(e.Claimant)
		if err != nil {
			return nil, err
		}
		identity, ok := s.links.Get(claimant)
		if !ok {
			return nil, fmt.Errorf("%w: claimant %s has no linked identity", errors.ErrNotFound, claimant)
		}
		if e.Identity != "" && e.Identity != identity {
			s.log.Warn("Claim carried a foreign identity, replaced", "claimant", claimant, "claimed", e.Identity, "identity", identity)
		}
		return event.TreasureClaimed{TreasureID: e.TreasureID, Claimant: claimant, Identity: identity}, nil

	case event.NewTreasureAdded:
		return e, nil

	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, e.Type())
	}
}

func (s *RelayService) address(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: address is required", errors.ErrInvalidRequest)
	}
	if s.strictAddresses {
		if err := domain.ValidateAddress(raw); err != nil {
			return "", err
		}
	}
	return domain.NormalizeAddress(raw), nil
}
