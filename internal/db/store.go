package db

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/wx-shi/utxo-ledger/internal/config"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
	"go.uber.org/zap"
)

// BadgerBackend selects BadgerDB; any other db_type is handed to cosmos-db.
const BadgerBackend = "badger"

// Store keeps a snapshot of the pool between runs.
type Store interface {
	// SavePool replaces the stored snapshot with pool and records epoch.
	SavePool(pool *utxo.Pool, epoch int64) error
	// LoadPool returns the stored snapshot, empty when nothing was saved.
	LoadPool() (*utxo.Pool, error)
	GetStoreEpoch() (int64, error)
	// SaveAccepted records the epoch in which each hash was accepted.
	SaveAccepted(hashes []chainhash.Hash, epoch int64) error
	// GetTxEpoch returns the epoch that accepted hash; found is false for
	// transactions never accepted.
	GetTxEpoch(hash chainhash.Hash) (epoch int64, found bool, err error)
	Close() error
}

func NewStore(conf *config.Config, logger *zap.Logger) (Store, error) {
	if conf.DB.DBType == BadgerBackend {
		return NewBadgerDB(conf.BadgerDB, logger)
	}
	return NewDB(conf.DB, logger)
}
