package db

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	tmdb "github.com/cosmos/cosmos-db"
	"github.com/wx-shi/utxo-ledger/internal/config"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
	"github.com/wx-shi/utxo-ledger/pkg"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	udbName = "utxo"
	tdbName = "tx"
)

// DB stores the pool snapshot in any cosmos-db backend (goleveldb, memdb, ...).
// udb holds the snapshot, tdb the accepted transaction index.
type DB struct {
	udb     tmdb.DB
	tdb     tmdb.DB
	backend string
	logger  *zap.Logger
}

func NewDB(conf *config.DBConfig, logger *zap.Logger) (*DB, error) {
	name := conf.Name
	if name == "" {
		name = udbName
	}
	udb, err := tmdb.NewDB(name, tmdb.BackendType(conf.DBType), conf.Dir)
	if err != nil {
		return nil, err
	}
	tdb, err := tmdb.NewDB(name+"_"+tdbName, tmdb.BackendType(conf.DBType), conf.Dir)
	if err != nil {
		_ = udb.Close()
		return nil, err
	}

	return &DB{
		udb:     udb,
		tdb:     tdb,
		backend: conf.DBType,
		logger:  logger,
	}, nil
}

func (db *DB) Close() error {
	g, _ := errgroup.WithContext(context.Background())
	g.Go(db.udb.Close)
	g.Go(db.tdb.Close)
	return g.Wait()
}

func (db *DB) GetStoreEpoch() (int64, error) {
	val, err := db.udb.Get([]byte(StoreEpoch))
	if err != nil {
		return 0, err
	}
	if len(val) == 0 {
		return 0, nil
	}
	return pkg.BytesToInt64(val)
}

func (db *DB) LoadPool() (*utxo.Pool, error) {
	it, err := db.udb.Iterator(prefixRange())
	if err != nil {
		return nil, err
	}
	defer it.Close()

	pool := utxo.NewPool()
	for ; it.Valid(); it.Next() {
		if err := decodeEntry(pool, it.Key(), it.Value()); err != nil {
			return nil, err
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return pool, nil
}

func (db *DB) SavePool(pool *utxo.Pool, epoch int64) error {
	start := time.Now()

	stale, err := db.storedKeys()
	if err != nil {
		return err
	}

	// 创建一个WriteBatch
	wb := db.udb.NewBatch()
	defer wb.Close()

	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	for _, op := range pool.AllUTXO() {
		out, _ := pool.GetOutput(op)
		val, err := encodeOutput(out)
		if err != nil {
			return err
		}
		if err := wb.Set(utxoKey(op), val); err != nil {
			return err
		}
	}
	if err := wb.Set([]byte(StoreEpoch), pkg.Int64ToBytes(epoch)); err != nil {
		return err
	}

	// 提交WriteBatch，将数据写入数据库
	if err := wb.WriteSync(); err != nil {
		return err
	}

	db.logger.Info("Store::SavePool",
		zap.String("backend", db.backend),
		zap.Int64("epoch", epoch),
		zap.Int("utxo_len", pool.Len()),
		zap.Duration("ttl", time.Since(start)))
	return nil
}

func (db *DB) SaveAccepted(hashes []chainhash.Hash, epoch int64) error {
	wb := db.tdb.NewBatch()
	defer wb.Close()

	val := pkg.Int64ToBytes(epoch)
	for _, hash := range hashes {
		if err := wb.Set(txKey(hash), val); err != nil {
			return err
		}
	}
	return wb.WriteSync()
}

func (db *DB) GetTxEpoch(hash chainhash.Hash) (int64, bool, error) {
	val, err := db.tdb.Get(txKey(hash))
	if err != nil {
		return 0, false, err
	}
	if len(val) == 0 {
		return 0, false, nil
	}
	epoch, err := pkg.BytesToInt64(val)
	return epoch, err == nil, err
}

func (db *DB) storedKeys() ([][]byte, error) {
	it, err := db.udb.Iterator(prefixRange())
	if err != nil {
		return nil, err
	}
	defer it.Close()

	keys := make([][]byte, 0, defaultMapCap)
	for ; it.Valid(); it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	return keys, it.Error()
}

// prefixRange is the [start, end) key range holding utxo entries.
func prefixRange() ([]byte, []byte) {
	start := []byte(utxoKeyPrefix)
	end := append([]byte(nil), start...)
	end[len(end)-1]++
	return start, end
}
