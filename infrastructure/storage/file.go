package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"treasure-hunt/domain"
)

const (
	linksFile    = "discordMappings.json"
	messagesFile = "messages.json"
)

// FileBackend keeps each dataset in its own JSON file inside dir.
// Writes go to a temporary file which is synced then renamed over the target.
type FileBackend struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

func NewFileBackend(dir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileBackend{dir: dir, log: log, now: time.Now}, nil
}

func (f *FileBackend) Load() (domain.Dataset, error) {
	dataset := emptyDataset()
	if err := f.read(linksFile, linksKind, &dataset.Links); err != nil {
		return domain.Dataset{}, err
	}
	if err := f.read(messagesFile, messagesKind, &dataset.Messages); err != nil {
		return domain.Dataset{}, err
	}
	dataset = normalizeDataset(dataset)
	f.log.Debug("Dataset loaded from files", "dir", f.dir, "links", len(dataset.Links), "messages", len(dataset.Messages))
	return dataset, nil
}

func (f *FileBackend) read(name, kind string, items any) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := decodeDocument(kind, data, items); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (f *FileBackend) SaveLinks(links domain.Links) error {
	return f.write(linksFile, linksKind, links)
}

func (f *FileBackend) SaveMessages(messages []domain.ChatMessage) error {
	return f.write(messagesFile, messagesKind, messages)
}

func (f *FileBackend) write(name, kind string, items any) error {
	data, err := encodeDocument(kind, items, f.now())
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+name+"-*.tmp")
	if err != nil {
		return err
	}
	// Removing after a successful rename is a no-op
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		return err
	}
	return syncDir(f.dir)
}

// syncDir flushes the directory entry so the rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return fmt.Errorf("syncing %s: %w", dir, err)
	}
	return d.Close()
}

func (f *FileBackend) Close() error {
	return nil
}
