//go:generate go run go.uber.org/mock/mockgen -source=link.go -destination=../mocks/mock_link_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"sync"
	"treasure-hunt/contract"
	"treasure-hunt/domain"
	"treasure-hunt/errors"
)

type ILinkRepository interface {
	Get(address string) (string, bool)
	Len() int
	Update(mutate func(links domain.Links) error) error
}

// LinkRepository is the in-memory mirror of the address -> identity dataset.
// Writers are serialized; readers see the state before or after a write, never during.
type LinkRepository struct {
	mu      sync.RWMutex
	backend contract.StoreBackend
	log     *slog.Logger
	links   domain.Links
}

func NewLinkRepository(backend contract.StoreBackend, initial domain.Links, log *slog.Logger) *LinkRepository {
	return &LinkRepository{backend: backend, log: log, links: initial.Clone()}
}

func (r *LinkRepository) Get(address string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.links[address]
	return identity, ok
}

func (r *LinkRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}

// Update runs mutate on a copy of the current links, persists the copy and
// only then makes it visible. An error from mutate aborts without any write.
// The write lock is held across check and write, so concurrent updates never
// decide on the same snapshot.
func (r *LinkRepository) Update(mutate func(links domain.Links) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.links.Clone()
	if err := mutate(next); err != nil {
		return err
	}
	if err := r.backend.SaveLinks(next); err != nil {
		r.log.Error("Saving identity links failed", "error", err)
		return fmt.Errorf("%w: %v", errors.ErrStorageFailure, err)
	}
	r.links = next
	return nil
}
