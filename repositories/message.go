//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"treasure-hunt/contract"
	"treasure-hunt/domain"
	"treasure-hunt/errors"
)

type IMessageRepository interface {
	Append(message domain.ChatMessage) error
	List(page domain.Page) []domain.ChatMessage
	Get(id string) (domain.ChatMessage, bool)
	Len() int
}

// MessageRepository is the in-memory mirror of the append-only chat log.
// Insertion order is chronological order and is never changed.
type MessageRepository struct {
	mu       sync.RWMutex
	backend  contract.StoreBackend
	log      *slog.Logger
	messages []domain.ChatMessage
	byID     map[string]int
}

func NewMessageRepository(backend contract.StoreBackend, initial []domain.ChatMessage, log *slog.Logger) *MessageRepository {
	byID := make(map[string]int, len(initial))
	for i, message := range initial {
		byID[message.ID] = i
	}
	return &MessageRepository{
		backend:  backend,
		log:      log,
		messages: append([]domain.ChatMessage{}, initial...),
		byID:     byID,
	}
}

// Append adds the message at the end of the log and rewrites the whole log durably.
// The in-memory log only grows once the write succeeded.
func (r *MessageRepository) Append(message domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[message.ID]; exists {
		return fmt.Errorf("%w: duplicate message id %s", errors.ErrInvalidRequest, message.ID)
	}

	next := make([]domain.ChatMessage, len(r.messages), len(r.messages)+1)
	copy(next, r.messages)
	next = append(next, message)
	if err := r.backend.SaveMessages(next); err != nil {
		r.log.Error("Saving chat log failed", "message_id", message.ID, "error", err)
		return fmt.Errorf("%w: %v", errors.ErrStorageFailure, err)
	}

	r.messages = next
	r.byID[message.ID] = len(next) - 1
	return nil
}

// List returns a copy of the requested window, oldest first.
func (r *MessageRepository) List(page domain.Page) []domain.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	start, end := page.Bounds(len(r.messages))
	return slices.Clone(r.messages[start:end])
}

func (r *MessageRepository) Get(id string) (domain.ChatMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ChatMessage{}, false
	}
	return r.messages[i], true
}

func (r *MessageRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages)
}
