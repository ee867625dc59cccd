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

	"github.com/abadojack/whatlanggo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var validate = validator.New()

type IChatService interface {
	Post(ctx context.Context, user, text string) (domain.ChatMessage, error)
	List(page domain.Page) []domain.ChatMessage
	Search(ctx context.Context, query string, limit int) ([]domain.ChatMessage, error)
}

// MessageSearcher returns the ids of the messages matching a query.
type MessageSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type ChatLimits struct {
	MaxUserLength int
	MaxTextLength int
	SearchLimit   int
}

type ChatService struct {
	messages  repositories.IMessageRepository
	publisher contract.Publisher
	moderator contract.Moderator
	searcher  MessageSearcher
	metrics   *observability.Metrics
	log       *slog.Logger
	limits    ChatLimits
	now       func() time.Time
}

// NewChatService builds the chat service. moderator and searcher may be nil.
func NewChatService(
	messages repositories.IMessageRepository,
	publisher contract.Publisher,
	moderator contract.Moderator,
	searcher MessageSearcher,
	metrics *observability.Metrics,
	log *slog.Logger,
	limits ChatLimits,
) IChatService {
	return &ChatService{
		messages:  messages,
		publisher: publisher,
		moderator: moderator,
		searcher:  searcher,
		metrics:   metrics,
		log:       log,
		limits:    limits,
		now:       time.Now,
	}
}

// Post stores the message then announces it. Subscribers get the exact stored
// value, server-assigned id and timestamp included.
func (s *ChatService) Post(ctx context.Context, user, text string) (domain.ChatMessage, error) {
	// 1. Reject blank or oversized input
	if err := s.check(user, text); err != nil {
		return domain.ChatMessage{}, err
	}

	// 2. Censor configured words
	if s.moderator != nil {
		censored, words := s.moderator.Censor(text)
		if len(words) > 0 {
			s.metrics.CensoredWords.Add(float64(len(words)))
			text = censored
		}
	}

	// 3. UUIDv7 ids carry a millisecond timestamp and random bits
	id, err := uuid.NewV7()
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("generating message id: %w", err)
	}
	message := domain.ChatMessage{
		ID:        id.String(),
		User:      user,
		Text:      text,
		Timestamp: domain.FormatTimestamp(s.now()),
	}

	// 4. Durable first, broadcast second
	if err := s.messages.Append(message); err != nil {
		return domain.ChatMessage{}, err
	}

	lang := detectLanguage(text)
	s.metrics.ChatMessages.WithLabelValues(lang).Inc()
	s.log.Info("Chat message stored", "message_id", message.ID, "user", message.User, "lang", lang)
	s.publisher.Publish(ctx, event.NewChatMessage{Message: message})
	return message, nil
}

func (s *ChatService) List(page domain.Page) []domain.ChatMessage {
	return s.messages.List(page)
}

// Search resolves index hits back to stored messages, most relevant first.
func (s *ChatService) Search(ctx context.Context, query string, limit int) ([]domain.ChatMessage, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("%w: search is disabled", errors.ErrNotFound)
	}
	if limit <= 0 {
		limit = s.limits.SearchLimit
	}
	ids, err := s.searcher.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	found := lo.FilterMap(ids, func(id string, _ int) (domain.ChatMessage, bool) {
		return s.messages.Get(id)
	})
	return found, nil
}

func (s *ChatService) check(user, text string) error {
	if strings.TrimSpace(user) == "" || strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: user and text are required", errors.ErrInvalidRequest)
	}
	if s.limits.MaxUserLength > 0 {
		if err := validate.Var(user, fmt.Sprintf("max=%d", s.limits.MaxUserLength)); err != nil {
			return fmt.Errorf("%w: user is too long", errors.ErrInvalidRequest)
		}
	}
	if s.limits.MaxTextLength > 0 {
		if err := validate.Var(text, fmt.Sprintf("max=%d", s.limits.MaxTextLength)); err != nil {
			return fmt.Errorf("%w: text is too long", errors.ErrInvalidRequest)
		}
	}
	return nil
}

// detectLanguage returns an ISO 639-1 tag, or "und" when detection is not reliable.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "und"
	}
	if tag := info.Lang.Iso6391(); tag != "" {
		return tag
	}
	return "und"
}
