// Package badger is the on-disk ciphertext Store backed by BadgerDB.
package badger

import (
	"errors"
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/AlexZinkM/keyvault/internal/store"
)

const keyPrefix = "ciphertext/"

type Store struct {
	db     *badgerdb.DB
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database in dir
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		return nil, errors.New("store path is empty")
	}

	opts := badgerdb.DefaultOptions(dir).
		WithSyncWrites(true).
		WithLogger(newBadgerLogger(logger))

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", dir, err)
	}

	logger.Debug("ciphertext store opened", zap.String("path", dir))
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func dbKey(ref string) []byte {
	return []byte(keyPrefix + ref)
}

func (s *Store) Put(ref string, ciphertext []byte) error {
	if ref == "" {
		return store.ErrEmptyReference
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(dbKey(ref), ciphertext)
	})
	if err != nil {
		return fmt.Errorf("failed to write ciphertext: %w", err)
	}
	return nil
}

func (s *Store) Get(ref string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(dbKey(ref))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ciphertext: %w", err)
	}
	return out, nil
}

func (s *Store) Has(ref string) (bool, error) {
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(dbKey(ref))
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read ciphertext: %w", err)
	}
	return true, nil
}

func (s *Store) Delete(ref string) error {
	if ref == "" {
		return store.ErrEmptyReference
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(dbKey(ref))
	})
	if err != nil {
		return fmt.Errorf("failed to delete ciphertext: %w", err)
	}
	return nil
}

func (s *Store) References() ([]string, error) {
	var refs []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			refs = append(refs, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ciphertexts: %w", err)
	}
	return refs, nil
}

// badgerLogger adapts zap to badger's logger interface
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func newBadgerLogger(logger *zap.Logger) *badgerLogger {
	return &badgerLogger{sugar: logger.Named("badger").Sugar()}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.sugar.Debugf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(strings.TrimSuffix(format, "\n"), args...)
}
