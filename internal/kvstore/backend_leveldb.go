package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBBackend keeps values in an on-disk LevelDB database. It is the
// default backend: one directory per profile, surviving restarts.
type LevelDBBackend struct {
	db *leveldb.DB
}

func OpenLevelDB(path string) (*LevelDBBackend, error) {
	if path == "" {
		return nil, errors.New("leveldb: empty path")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

func (b *LevelDBBackend) Read(_ context.Context, key string) ([]byte, bool, error) {
	v, err := b.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *LevelDBBackend) Write(_ context.Context, key string, val []byte) error {
	return b.db.Put([]byte(key), val, nil)
}

func (b *LevelDBBackend) Delete(_ context.Context, key string) error {
	return b.db.Delete([]byte(key), nil)
}

func (b *LevelDBBackend) Ping(context.Context) error {
	_, err := b.db.GetProperty("leveldb.num-files-at-level0")
	return err
}

func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}
