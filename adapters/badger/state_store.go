// Package badger keeps workspace state (notes, tour flags) in an embedded
// BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"datalens/domain/core"
	"datalens/internal"

	"github.com/dgraph-io/badger/v4"
)

const (
	notesPrefix = "notes/"
	tourPrefix  = "tour/"
)

// Config configures the database
type Config struct {
	// Path is the database directory; ignored when InMemory is set
	Path string
	// InMemory keeps everything in memory, for tests
	InMemory   bool
	SyncWrites bool
	// Logger receives BadgerDB's own log output; nil silences it
	Logger *internal.Logger
}

// DefaultConfig returns a persistent config rooted at path
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a config for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts internal.Logger to badger.Logger
type badgerLogger struct {
	logger *internal.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Error(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warn(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debug(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Trace(format, args...) }

// Open opens a BadgerDB with cfg
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With("Badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// StateStore implements ports.StateStore on BadgerDB
type StateStore struct {
	db *badger.DB
}

// NewStateStore opens the database described by cfg
func NewStateStore(cfg Config) (*StateStore, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return &StateStore{db: db}, nil
}

func (s *StateStore) LoadNotes(ctx context.Context, id core.DatasetID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var notes string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(notesPrefix + id.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			notes = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", core.ErrNotesNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load notes for dataset %s: %w", id, err)
	}
	return notes, nil
}

func (s *StateStore) SaveNotes(ctx context.Context, id core.DatasetID, notes string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(notesPrefix+id.String()), []byte(notes))
	})
	if err != nil {
		return fmt.Errorf("save notes for dataset %s: %w", id, err)
	}
	return nil
}

func (s *StateStore) TourSeen(ctx context.Context, tour string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(tourPrefix + tour))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read tour flag %s: %w", tour, err)
	}
	return true, nil
}

func (s *StateStore) MarkTourSeen(ctx context.Context, tour string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(tourPrefix+tour), []byte{1})
	})
	if err != nil {
		return fmt.Errorf("store tour flag %s: %w", tour, err)
	}
	return nil
}

// Close closes the database
func (s *StateStore) Close() error {
	return s.db.Close()
}
