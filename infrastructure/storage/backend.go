package storage

import (
	"fmt"
	"log/slog"
	"treasure-hunt/contract"
	"treasure-hunt/errors"
)

const (
	BackendBadger = "badger"
	BackendFile   = "file"
)

// Open builds the backend selected by kind. The badger path and the file
// directory are only read by their own backend.
func Open(kind, badgerPath, dataDir string, log *slog.Logger) (contract.StoreBackend, error) {
	switch kind {
	case BackendBadger:
		db, err := OpenBadger(badgerPath, false)
		if err != nil {
			return nil, fmt.Errorf("database opening failed: %w", err)
		}
		return NewBadgerBackend(db, log), nil
	case BackendFile:
		backend, err := NewFileBackend(dataDir, log)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownStore, kind)
	}
}
