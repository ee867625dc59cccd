package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"treasure-hunt/domain"

	"github.com/dgraph-io/badger/v4"
)

// Each dataset lives under a single key, so one transaction replaces it entirely.
var (
	linksKey    = []byte("dataset/links")
	messagesKey = []byte("dataset/messages")
)

type BadgerBackend struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewBadgerBackend(db *badger.DB, log *slog.Logger) *BadgerBackend {
	return &BadgerBackend{db: db, log: log, now: time.Now}
}

// OpenBadger opens the database directory with the backend's logging level.
func OpenBadger(path string, readOnly bool) (*badger.DB, error) {
	options := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if readOnly {
		options = options.WithReadOnly(true).WithBypassLockGuard(true)
	}
	return badger.Open(options)
}

// Load reads both datasets. A missing key is an empty dataset.
func (b *BadgerBackend) Load() (domain.Dataset, error) {
	dataset := emptyDataset()
	err := b.db.View(func(txn *badger.Txn) error {
		if err := b.read(txn, linksKey, linksKind, &dataset.Links); err != nil {
			return err
		}
		return b.read(txn, messagesKey, messagesKind, &dataset.Messages)
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	dataset = normalizeDataset(dataset)
	b.log.Debug("Dataset loaded from badger", "links", len(dataset.Links), "messages", len(dataset.Messages))
	return dataset, nil
}

func (b *BadgerBackend) read(txn *badger.Txn, key []byte, kind string, items any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return decodeDocument(kind, val, items)
	})
}

func (b *BadgerBackend) SaveLinks(links domain.Links) error {
	return b.write(linksKey, linksKind, links)
}

func (b *BadgerBackend) SaveMessages(messages []domain.ChatMessage) error {
	return b.write(messagesKey, messagesKind, messages)
}

func (b *BadgerBackend) write(key []byte, kind string, items any) error {
	bytes, err := encodeDocument(kind, items, b.now())
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bytes)
	})
}

func (b *BadgerBackend) Close() error {
	b.log.Info("Closing BadgerDB...")
	return b.db.Close()
}
