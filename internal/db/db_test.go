package db

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wx-shi/utxo-ledger/internal/config"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
	"go.uber.org/zap"
)

func testPool(n int) *utxo.Pool {
	pool := utxo.NewPool()
	hash := chainhash.DoubleHashH([]byte("genesis"))
	for i := 0; i < n; i++ {
		pool.AddUTXO(utxo.NewOutPoint(hash, uint32(i)),
			utxo.NewOutput(decimal.New(int64(i+1), -2), []byte{0x02, byte(i)}))
	}
	return pool
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	logger := zap.NewNop()

	bdb, err := NewStore(&config.Config{
		DB:       &config.DBConfig{DBType: BadgerBackend},
		BadgerDB: &config.BadgerDBConfig{InMemory: true},
	}, logger)
	require.NoError(t, err)

	mdb, err := NewStore(&config.Config{
		DB: &config.DBConfig{Name: "utxo", DBType: "memdb"},
	}, logger)
	require.NoError(t, err)

	ldb, err := NewStore(&config.Config{
		DB: &config.DBConfig{Name: "utxo", Dir: t.TempDir(), DBType: "goleveldb"},
	}, logger)
	require.NoError(t, err)

	return map[string]Store{"badger": bdb, "memdb": mdb, "goleveldb": ldb}
}

func TestStore(t *testing.T) {
	for name, s := range stores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			empty, err := s.LoadPool()
			require.NoError(t, err)
			assert.Equal(t, 0, empty.Len())
			epoch, err := s.GetStoreEpoch()
			require.NoError(t, err)
			assert.Equal(t, int64(0), epoch)

			pool := testPool(5)
			require.NoError(t, s.SavePool(pool, 3))

			got, err := s.LoadPool()
			require.NoError(t, err)
			require.Equal(t, pool.AllUTXO(), got.AllUTXO())
			for _, op := range pool.AllUTXO() {
				want, _ := pool.GetOutput(op)
				out, _ := got.GetOutput(op)
				assert.Equal(t, want.PubKey, out.PubKey)
				assert.True(t, want.Value.Equal(out.Value), op.String())
			}

			// a smaller snapshot replaces the old one
			require.NoError(t, s.SavePool(testPool(2), 4))
			got, err = s.LoadPool()
			require.NoError(t, err)
			assert.Equal(t, 2, got.Len())
			epoch, err = s.GetStoreEpoch()
			require.NoError(t, err)
			assert.Equal(t, int64(4), epoch)
		})
	}
}

func TestFailedSaveKeepsSnapshot(t *testing.T) {
	for name, s := range stores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			pool := testPool(3)
			require.NoError(t, s.SavePool(pool, 1))

			next := testPool(1)
			next.AddUTXO(utxo.NewOutPoint(chainhash.DoubleHashH([]byte("next")), 0),
				utxo.NewOutput(decimal.NewFromInt(1), make([]byte, maxPubKeyLen+1)))
			assert.Error(t, s.SavePool(next, 2))

			got, err := s.LoadPool()
			require.NoError(t, err)
			assert.Equal(t, pool.AllUTXO(), got.AllUTXO())
			epoch, err := s.GetStoreEpoch()
			require.NoError(t, err)
			assert.Equal(t, int64(1), epoch)
		})
	}
}

func TestAcceptedIndex(t *testing.T) {
	for name, s := range stores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			a := chainhash.DoubleHashH([]byte("a"))
			b := chainhash.DoubleHashH([]byte("b"))
			require.NoError(t, s.SaveAccepted([]chainhash.Hash{a}, 2))
			require.NoError(t, s.SaveAccepted(nil, 3))

			epoch, found, err := s.GetTxEpoch(a)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, int64(2), epoch)

			_, found, err = s.GetTxEpoch(b)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestCodec(t *testing.T) {
	op := utxo.NewOutPoint(chainhash.DoubleHashH([]byte("x")), 7)
	got, err := parseUtxoKey(utxoKey(op))
	require.NoError(t, err)
	assert.Equal(t, op, got)

	_, err = parseUtxoKey([]byte("u:abc"))
	assert.Error(t, err)
	_, err = parseUtxoKey([]byte("u:" + op.Hash.String() + ":x"))
	assert.Error(t, err)

	_, err = decodeOutput([]byte{0x05, 0x01})
	assert.Error(t, err)

	_, err = encodeOutput(utxo.NewOutput(decimal.Zero, make([]byte, maxPubKeyLen+1)))
	assert.Error(t, err)
}
