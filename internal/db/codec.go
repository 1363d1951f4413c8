package db

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
)

const (
	utxoKeyPrefix = "u:"
	txKeyPrefix   = "t:"
	StoreEpoch    = "s:e"

	pver          = 0
	maxPubKeyLen  = 1 << 10
	defaultMapCap = 10000
)

// utxo keys are u:<hash>:<index>
func utxoKey(op utxo.OutPoint) []byte {
	return []byte(utxoKeyPrefix + op.String())
}

// tx keys are t:<hash>
func txKey(hash chainhash.Hash) []byte {
	return []byte(txKeyPrefix + hash.String())
}

func parseUtxoKey(key []byte) (utxo.OutPoint, error) {
	arr := strings.Split(strings.TrimPrefix(string(key), utxoKeyPrefix), ":")
	if len(arr) != 2 {
		return utxo.OutPoint{}, fmt.Errorf("invalid key:%s", key)
	}
	hash, err := chainhash.NewHashFromStr(arr[0])
	if err != nil {
		return utxo.OutPoint{}, fmt.Errorf("invalid key:%s: %w", key, err)
	}
	index, err := strconv.ParseUint(arr[1], 10, 32)
	if err != nil {
		return utxo.OutPoint{}, fmt.Errorf("invalid key:%s: %w", key, err)
	}
	return utxo.NewOutPoint(*hash, uint32(index)), nil
}

func encodeOutput(out *utxo.Output) ([]byte, error) {
	if len(out.PubKey) > maxPubKeyLen {
		return nil, fmt.Errorf("pubkey too long:%d", len(out.PubKey))
	}
	buf := new(bytes.Buffer)
	if err := wire.WriteVarBytes(buf, pver, out.PubKey); err != nil {
		return nil, err
	}
	if err := wire.WriteVarString(buf, pver, out.Value.String()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeOutput(b []byte) (*utxo.Output, error) {
	r := bytes.NewReader(b)
	pubKey, err := wire.ReadVarBytes(r, pver, maxPubKeyLen, "pubkey")
	if err != nil {
		return nil, err
	}
	s, err := wire.ReadVarString(r, pver)
	if err != nil {
		return nil, err
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid value:%s: %w", s, err)
	}
	return &utxo.Output{PubKey: pubKey, Value: value}, nil
}

// decodeEntry rebuilds one pool entry from a stored key/value pair.
func decodeEntry(pool *utxo.Pool, key, val []byte) error {
	op, err := parseUtxoKey(key)
	if err != nil {
		return err
	}
	out, err := decodeOutput(val)
	if err != nil {
		return fmt.Errorf("key:%s: %w", key, err)
	}
	pool.AddUTXO(op, out)
	return nil
}
