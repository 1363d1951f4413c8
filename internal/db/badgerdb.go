package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dgraph-io/badger/v4"
	"github.com/wx-shi/utxo-ledger/internal/config"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
	"github.com/wx-shi/utxo-ledger/pkg"
	"go.uber.org/zap"
)

// BadgerDB is a wrapper around the badger.DB instance.
type BadgerDB struct {
	*badger.DB
	logger *zap.Logger
}

// NewBadgerDB creates a new BadgerDB instance.
func NewBadgerDB(config *config.BadgerDBConfig, logger *zap.Logger) (*BadgerDB, error) {
	opts := DefaultBadgerOptions(config.Directory).
		WithLoggingLevel(badger.WARNING)
	if config.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerDB{
		DB:     db,
		logger: logger,
	}, nil
}

func (db *BadgerDB) GetStoreEpoch() (int64, error) {
	var epoch int64
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(StoreEpoch))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		epoch, err = pkg.BytesToInt64(val)
		return err
	})
	return epoch, err
}

func (db *BadgerDB) LoadPool() (*utxo.Pool, error) {
	pool := utxo.NewPool()
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(utxoKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := decodeEntry(pool, item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// SavePool replaces the snapshot in a single transaction: a failed save
// leaves the previous snapshot and its epoch in place. The whole snapshot
// must fit in one badger transaction, otherwise badger.ErrTxnTooBig is
// returned.
func (db *BadgerDB) SavePool(pool *utxo.Pool, epoch int64) error {
	start := time.Now()

	err := db.Update(func(txn *badger.Txn) error {
		for _, key := range utxoKeys(txn) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for _, op := range pool.AllUTXO() {
			out, _ := pool.GetOutput(op)
			val, err := encodeOutput(out)
			if err != nil {
				return fmt.Errorf("utxo %s: %w", op, err)
			}
			if err := txn.Set(utxoKey(op), val); err != nil {
				return err
			}
		}
		return txn.Set([]byte(StoreEpoch), pkg.Int64ToBytes(epoch))
	})
	if err != nil {
		return err
	}

	db.logger.Info("Store::SavePool",
		zap.String("backend", BadgerBackend),
		zap.Int64("epoch", epoch),
		zap.Int("utxo_len", pool.Len()),
		zap.Duration("ttl", time.Since(start)))
	return nil
}

// utxoKeys lists the utxo keys currently visible to txn.
func utxoKeys(txn *badger.Txn) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	keys := make([][]byte, 0, defaultMapCap)
	prefix := []byte(utxoKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

func (db *BadgerDB) SaveAccepted(hashes []chainhash.Hash, epoch int64) error {
	wb := db.NewWriteBatch()
	defer wb.Cancel()

	val := pkg.Int64ToBytes(epoch)
	for _, hash := range hashes {
		if err := wb.Set(txKey(hash), val); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (db *BadgerDB) GetTxEpoch(hash chainhash.Hash) (int64, bool, error) {
	var (
		epoch int64
		found bool
	)
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(txKey(hash))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		found = true
		epoch, err = pkg.BytesToInt64(val)
		return err
	})
	return epoch, found, err
}

// GC runs value log garbage collection until ctx is done.
func (db *BadgerDB) GC(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(defaultGCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.RunValueLogGC(defaultGCDiscardRatio); err != nil &&
					!errors.Is(err, badger.ErrNoRewrite) &&
					!errors.Is(err, badger.ErrRejected) &&
					!errors.Is(err, badger.ErrGCInMemoryMode) {
					db.logger.Error("RunValueLogGC", zap.Error(err))
				}
			}
		}
	}()
}
