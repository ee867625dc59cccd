// Package projection keeps read models derived from published events.
package projection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"treasure-hunt/domain"
	"treasure-hunt/domain/event"
	"treasure-hunt/errors"

	"github.com/blugelabs/bluge"
)

const (
	textField = "text"
	userField = "user"
	idField   = "_id"
)

// SearchIndex is an in-memory full-text index over the chat log.
// It is rebuilt from the store at startup and then fed by NewChatMessage events.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(log *slog.Logger) (*SearchIndex, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	return &SearchIndex{writer: writer, log: log}, nil
}

// Index adds or replaces the given messages in one batch.
func (s *SearchIndex) Index(messages ...domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	batch := bluge.NewBatch()
	for _, message := range messages {
		doc := bluge.NewDocument(message.ID).
			AddField(bluge.NewTextField(textField, message.Text)).
			AddField(bluge.NewKeywordField(userField, message.User).StoreValue())
		batch.Update(doc.ID(), doc)
	}
	if err := s.writer.Batch(batch); err != nil {
		return fmt.Errorf("indexing %d messages: %w", len(messages), err)
	}
	return nil
}

// Consume implements contract.EventSink.
func (s *SearchIndex) Consume(_ context.Context, e event.Event) error {
	posted, ok := e.(event.NewChatMessage)
	if !ok {
		return nil
	}
	return s.Index(posted.Message)
}

// Search returns the ids of the best matching messages, most relevant first.
func (s *SearchIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", errors.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = 10
	}

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	request := bluge.NewTopNSearch(limit, bluge.NewMatchQuery(query).SetField(textField))
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var ids []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug("Chat search", "query", query, "hits", len(ids))
	return ids, nil
}

func (s *SearchIndex) Close() error {
	return s.writer.Close()
}
