package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"treasure-hunt/contract"
	"treasure-hunt/domain"
	"treasure-hunt/domain/event"
	"treasure-hunt/errors"
	"treasure-hunt/observability"
	"treasure-hunt/repositories"
)

type IIdentityService interface {
	BeginLink(address string) (string, error)
	CompleteLink(ctx context.Context, code, state string) (domain.IdentityLink, error)
	Unlink(address string) error
	Lookup(address string) (string, error)
}

type IdentityService struct {
	links           repositories.ILinkRepository
	provider        contract.IdentityProvider
	state           contract.StateCodec
	publisher       contract.Publisher
	metrics         *observability.Metrics
	log             *slog.Logger
	strictAddresses bool
}

func NewIdentityService(
	links repositories.ILinkRepository,
	provider contract.IdentityProvider,
	state contract.StateCodec,
	publisher contract.Publisher,
	metrics *observability.Metrics,
	log *slog.Logger,
	strictAddresses bool,
) IIdentityService {
	return &IdentityService{
		links:           links,
		provider:        provider,
		state:           state,
		publisher:       publisher,
		metrics:         metrics,
		log:             log,
		strictAddresses: strictAddresses,
	}
}

// BeginLink returns the provider URL carrying the address as state.
// The same address always gives the same URL.
func (s *IdentityService) BeginLink(address string) (string, error) {
	normalized, err := s.normalize(address)
	if err != nil {
		return "", err
	}
	state, err := s.state.Encode(normalized)
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

func (s *IdentityService) CompleteLink(ctx context.Context, code, state string) (domain.IdentityLink, error) {
	// 1. Both callback parameters are mandatory
	if strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		s.metrics.LinkOperations.WithLabelValues("link", "invalid").Inc()
		return domain.IdentityLink{}, fmt.Errorf("%w: code and state are required", errors.ErrInvalidRequest)
	}
	rawAddress, err := s.state.Decode(state)
	if err != nil {
		s.metrics.LinkOperations.WithLabelValues("link", "invalid").Inc()
		return domain.IdentityLink{}, err
	}
	address, err := s.normalize(rawAddress)
	if err != nil {
		s.metrics.LinkOperations.WithLabelValues("link", "invalid").Inc()
		return domain.IdentityLink{}, err
	}

	// 2. Exchange the code and fetch the identity, bounded by the provider timeout
	started := time.Now()
	identity, err := s.provider.Resolve(ctx, code)
	s.metrics.ObserveUpstream(started)
	if err != nil {
		s.metrics.LinkOperations.WithLabelValues("link", "upstream_failure").Inc()
		s.log.Error("Identity resolution failed", "address", address, "error", err)
		return domain.IdentityLink{}, err
	}

	// 3. Conflict check and write happen under the repository write lock,
	// against the state the write will replace
	err = s.links.Update(func(links domain.Links) error {
		if existing, taken := links.AddressOf(identity); taken && existing != address {
			return &errors.IdentityConflictError{Identity: identity, ExistingAddress: existing}
		}
		// A linked address keeps its identity until it is unlinked
		if current, linked := links[address]; linked && current != identity {
			return &errors.IdentityConflictError{Identity: current, ExistingAddress: address}
		}
		links[address] = identity
		return nil
	})
	if err != nil {
		if existing, conflict := errors.ExistingAddress(err); conflict {
			s.metrics.LinkOperations.WithLabelValues("link", "conflict").Inc()
			s.log.Warn("Identity already linked", "identity", identity, "address", address, "existing_address", existing)
		} else {
			s.metrics.LinkOperations.WithLabelValues("link", "storage_failure").Inc()
		}
		return domain.IdentityLink{}, err
	}

	// 4. Only a durable link is announced
	s.metrics.LinkOperations.WithLabelValues("link", "ok").Inc()
	s.log.Info("Identity linked", "address", address, "identity", identity)
	s.publisher.Publish(ctx, event.UserConnected{Address: address})
	return domain.IdentityLink{Address: address, Identity: identity}, nil
}

// Unlink removes the address mapping. A second call on the same address is NotFound.
func (s *IdentityService) Unlink(address string) error {
	key := domain.NormalizeAddress(address)
	if key == "" {
		return fmt.Errorf("%w: address is required", errors.ErrInvalidRequest)
	}
	err := s.links.Update(func(links domain.Links) error {
		if _, ok := links[key]; !ok {
			return fmt.Errorf("%w: no identity linked to %s", errors.ErrNotFound, key)
		}
		delete(links, key)
		return nil
	})
	if err != nil {
		s.metrics.LinkOperations.WithLabelValues("unlink", errors.Code(err)).Inc()
		return err
	}
	s.metrics.LinkOperations.WithLabelValues("unlink", "ok").Inc()
	s.log.Info("Identity unlinked", "address", key)
	return nil
}

func (s *IdentityService) Lookup(address string) (string, error) {
	key := domain.NormalizeAddress(address)
	identity, ok := s.links.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: no identity linked to %s", errors.ErrNotFound, key)
	}
	return identity, nil
}

func (s *IdentityService) normalize(address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", fmt.Errorf("%w: address is required", errors.ErrInvalidRequest)
	}
	if s.strictAddresses {
		if err := domain.ValidateAddress(address); err != nil {
			return "", err
		}
	}
	return domain.NormalizeAddress(address), nil
}
