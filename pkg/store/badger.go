package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/chazu/kerf/pkg/lineage"
	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig configures a badger-backed store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in memory; for tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives badger's internal logging; nil silences it.
	Logger *slog.Logger
}

// Key layout:
//
//	split\x00<id>                 JSON SplitElement
//	source\x00<src>\x00<seq>       id, seq is big-endian save order
//	seq\x00split                   badger sequence
var (
	splitPrefix  = []byte("split\x00")
	sourcePrefix = []byte("source\x00")
	seqKey       = []byte("seq\x00split")
)

func splitKey(id string) []byte {
	return append(append([]byte(nil), splitPrefix...), id...)
}

func sourceKeyPrefix(src string) []byte {
	k := append(append([]byte(nil), sourcePrefix...), src...)
	return append(k, 0)
}

func sourceKey(src string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(sourceKeyPrefix(src), seq)
}

// badgerLogger adapts slog onto badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Badger is a Store backed by a badger database.
type Badger struct {
	db  *badger.DB
	seq *badger.Sequence
}

var _ Store = (*Badger)(nil)

// OpenBadger opens (creating if needed) a badger store.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: badger path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("store: create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger database: %w", err)
	}
	seq, err := db.GetSequence(seqKey, 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: open sequence: %w", err)
	}
	return &Badger{db: db, seq: seq}, nil
}

func (b *Badger) Save(ctx context.Context, e *lineage.SplitElement) (string, error) {
	saved, err := b.SaveAll(ctx, []*lineage.SplitElement{e})
	if err != nil {
		return "", err
	}
	return saved[0], nil
}

// SaveAll writes every element in one transaction.
func (b *Badger) SaveAll(_ context.Context, elems []*lineage.SplitElement) ([]string, error) {
	cs, err := prepareAll(elems)
	if err != nil {
		return nil, err
	}
	data := make([][]byte, len(cs))
	for i, c := range cs {
		if data[i], err = json.Marshal(c); err != nil {
			return nil, fmt.Errorf("store: encode %s: %w", c.ID, err)
		}
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		for i, c := range cs {
			if err := b.put(txn, c, data[i]); err != nil {
				return fmt.Errorf("store: save %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idsOf(cs), nil
}

// put writes c, indexing it under its source the first time it is seen.
func (b *Badger) put(txn *badger.Txn, c *lineage.SplitElement, data []byte) error {
	_, err := txn.Get(splitKey(c.ID))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		n, err := b.seq.Next()
		if err != nil {
			return err
		}
		if err := txn.Set(sourceKey(c.SourceElementID, n), []byte(c.ID)); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	return txn.Set(splitKey(c.ID), data)
}

func (b *Badger) Get(_ context.Context, id string) (*lineage.SplitElement, error) {
	var e *lineage.SplitElement
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getElement(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func getElement(txn *badger.Txn, id string) (*lineage.SplitElement, error) {
	item, err := txn.Get(splitKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	var e lineage.SplitElement
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	})
	if err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return &e, nil
}

// sourceIDs returns the index keys and element ids of a source, in save
// order.
func sourceIDs(txn *badger.Txn, src string) (keys [][]byte, ids []string) {
	prefix := sourceKeyPrefix(src)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true})
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		keys = append(keys, item.KeyCopy(nil))
		val, err := item.ValueCopy(nil)
		if err != nil {
			continue
		}
		ids = append(ids, string(val))
	}
	return keys, ids
}

func (b *Badger) ListBySource(_ context.Context, sourceID string) ([]*lineage.SplitElement, error) {
	var out []*lineage.SplitElement
	err := b.db.View(func(txn *badger.Txn) error {
		_, ids := sourceIDs(txn, sourceID)
		out = make([]*lineage.SplitElement, 0, len(ids))
		for _, id := range ids {
			e, err := getElement(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) DeleteBySource(_ context.Context, sourceID string) (int, error) {
	var n int
	err := b.db.Update(func(txn *badger.Txn) error {
		keys, ids := sourceIDs(txn, sourceID)
		for _, id := range ids {
			if err := txn.Delete(splitKey(id)); err != nil {
				return err
			}
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		n = len(ids)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: delete source %s: %w", sourceID, err)
	}
	return n, nil
}

func (b *Badger) Sources(_ context.Context) ([]string, error) {
	var out []string
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: sourcePrefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			rest := it.Item().Key()[len(sourcePrefix):]
			end := bytes.IndexByte(rest, 0)
			if end < 0 {
				continue
			}
			src := string(rest[:end])
			if len(out) == 0 || out[len(out)-1] != src {
				out = append(out, src)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list sources: %w", err)
	}
	return out, nil
}

// Close releases the sequence and closes the database.
func (b *Badger) Close() error {
	relErr := b.seq.Release()
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("store: close badger: %w", err)
	}
	return relErr
}
