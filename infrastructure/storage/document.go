// Package storage holds the durable backends of the persistent store.
// Both datasets are written as whole JSON documents, never patched in place.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
	"treasure-hunt/domain"
	"treasure-hunt/errors"
)

const (
	linksKind    = "identityLinks"
	messagesKind = "chatMessages"

	documentVersion = 1
)

// document is the self-describing envelope around a dataset.
type document struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	SavedAt string          `json:"savedAt"`
	Items   json.RawMessage `json:"items"`
}

func encodeDocument(kind string, items any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(document{
		Kind:    kind,
		Version: documentVersion,
		SavedAt: domain.FormatTimestamp(now),
		Items:   raw,
	}, "", "  ")
}

// decodeDocument reads an envelope, or a bare legacy document (plain object or array).
func decodeDocument(kind string, data []byte, items any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var doc document
	if data[0] == '{' {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
		}
	}
	if doc.Kind == "" {
		if err := json.Unmarshal(data, items); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
		}
		return nil
	}

	if doc.Kind != kind {
		return fmt.Errorf("%w: expected %s, got %s", errors.ErrInvalidDocument, kind, doc.Kind)
	}
	if doc.Version > documentVersion {
		return fmt.Errorf("%w: unsupported version %d", errors.ErrInvalidDocument, doc.Version)
	}
	if len(doc.Items) == 0 {
		return nil
	}
	if err := json.Unmarshal(doc.Items, items); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
	}
	return nil
}

func emptyDataset() domain.Dataset {
	return domain.Dataset{Links: domain.Links{}, Messages: []domain.ChatMessage{}}
}

func normalizeDataset(dataset domain.Dataset) domain.Dataset {
	if dataset.Links == nil {
		dataset.Links = domain.Links{}
	}
	if dataset.Messages == nil {
		dataset.Messages = []domain.ChatMessage{}
	}
	return dataset
}
