package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     logging.Logger
}

// BadgerStore keeps snappy-compressed JSON documents in BadgerDB under
// "<workspace>/<key>".
type BadgerStore struct {
	db        *badger.DB
	workspace string

	mu     sync.RWMutex
	closed bool
}

// badgerLogger adapts logging.Logger to badger's logger.
type badgerLogger struct {
	logger logging.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadgerStore opens (creating if needed) a BadgerStore for workspace.
func OpenBadgerStore(cfg BadgerConfig, workspace string) (*BadgerStore, error) {
	if workspace == "" {
		return nil, errors.New("badger store: workspace is required")
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger store: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{logger: cfg.Logger.With(logging.Component("badger"))})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db, workspace: workspace}, nil
}

func (s *BadgerStore) dbKey(key string) []byte {
	return []byte(s.workspace + "/" + key)
}

func (s *BadgerStore) check(ctx context.Context, op, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return &StoreError{Op: op, Key: key, Cause: ErrStoreClosed}
	}
	if err := validKey(key); err != nil {
		return &StoreError{Op: op, Key: key, Cause: err}
	}
	return nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "get", key); err != nil {
		return Document{}, err
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.dbKey(key))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: ErrNotFound}
	}
	if err != nil {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: err}
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	return doc, nil
}

func (s *BadgerStore) Set(ctx context.Context, key string, doc Document) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "set", key); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	compressed := snappy.Encode(nil, raw)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.dbKey(key), compressed)
	}); err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "delete", key); err != nil {
		return false, err
	}

	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(s.dbKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(s.dbKey(key))
	})
	if err != nil {
		return false, &StoreError{Op: "delete", Key: key, Cause: err}
	}
	return existed, nil
}

// Close closes the database. Further calls fail with ErrStoreClosed.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
