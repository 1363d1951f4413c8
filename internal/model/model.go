package model

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/shopspring/decimal"
	"github.com/wx-shi/utxo-ledger/internal/config"
	"github.com/wx-shi/utxo-ledger/internal/tx"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
	"github.com/wx-shi/utxo-ledger/pkg"
)

type Input struct {
	PrevTxHash  string `json:"prev_tx_hash"`
	OutputIndex uint32 `json:"output_index"`
	Signature   string `json:"signature"` //hex DER
}

type Output struct {
	PubKey string          `json:"pub_key"` //hex compressed public key
	Value  decimal.Decimal `json:"value"`
}

type Transaction struct {
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

type ValidateReply struct {
	Hash   string `json:"hash"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Msg    string `json:"msg,omitempty"`
}

type HandleRequest struct {
	Txs []Transaction `json:"txs"`
}

type HandleReply struct {
	Epoch     int64    `json:"epoch"`
	Accepted  []string `json:"accepted"`
	PoolLen   int      `json:"pool_len"`
	Persisted bool     `json:"persisted"` //false when no store is configured or a write failed
}

type SignDataRequest struct {
	Tx    Transaction `json:"tx"`
	Index int         `json:"index"`
}

type SignDataReply struct {
	Data string `json:"data"`
}

type UTXORequest struct {
	PubKey   string `json:"pub_key"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type UTXO struct {
	TxID    string `json:"txid"`
	Index   uint32 `json:"index"`
	PubKey  string `json:"pub_key,omitempty"`
	Address string `json:"address,omitempty"`
	Value   string `json:"value"`
}

type UTXOReply struct {
	Balance   string  `json:"balance,omitempty"`
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
	TotalSize int     `json:"total_size"`
	Utxos     []*UTXO `json:"utxos"`
}

type TxRequest struct {
	Hash string `json:"hash"`
}

type TxReply struct {
	Hash     string `json:"hash"`
	Accepted bool   `json:"accepted"`
	Epoch    int64  `json:"epoch,omitempty"`
}

type EpochReply struct {
	Epoch      int64 `json:"epoch"`
	StoreEpoch int64 `json:"store_epoch"`
}

// ToTx decodes the hex fields into a transaction.
func (t *Transaction) ToTx() (*tx.Transaction, error) {
	out := tx.NewTransaction()
	for i, in := range t.Inputs {
		hash, err := chainhash.NewHashFromStr(in.PrevTxHash)
		if err != nil {
			return nil, fmt.Errorf("input %d prev_tx_hash: %w", i, err)
		}
		sig, err := hex.DecodeString(in.Signature)
		if err != nil {
			return nil, fmt.Errorf("input %d signature: %w", i, err)
		}
		out.AddInput(*hash, in.OutputIndex)
		out.Inputs[i].Signature = sig
	}
	for i, o := range t.Outputs {
		pubKey, err := hex.DecodeString(o.PubKey)
		if err != nil {
			return nil, fmt.Errorf("output %d pub_key: %w", i, err)
		}
		out.AddOutput(o.Value, pubKey)
	}
	return out, nil
}

func FromTx(t *tx.Transaction) Transaction {
	m := Transaction{
		Inputs:  make([]Input, 0, len(t.Inputs)),
		Outputs: make([]Output, 0, len(t.Outputs)),
	}
	for _, in := range t.Inputs {
		m.Inputs = append(m.Inputs, Input{
			PrevTxHash:  in.PrevTxHash.String(),
			OutputIndex: in.OutputIndex,
			Signature:   hex.EncodeToString(in.Signature),
		})
	}
	for _, o := range t.Outputs {
		m.Outputs = append(m.Outputs, Output{
			PubKey: hex.EncodeToString(o.PubKey),
			Value:  o.Value,
		})
	}
	return m
}

// NewUTXO renders one pool entry. Address is left empty when the owner key
// is not a valid secp256k1 public key.
func NewUTXO(op utxo.OutPoint, out *utxo.Output) *UTXO {
	address, _ := pkg.AddressFromPubKey(out.PubKey)
	return &UTXO{
		TxID:    op.Hash.String(),
		Index:   op.Index,
		PubKey:  hex.EncodeToString(out.PubKey),
		Address: address,
		Value:   out.Value.String(),
	}
}

// GenesisPool builds the initial pool from configured entries.
func GenesisPool(entries []config.GenesisUTXO) (*utxo.Pool, error) {
	pool := utxo.NewPool()
	for i, e := range entries {
		hash, err := chainhash.NewHashFromStr(e.Hash)
		if err != nil {
			return nil, fmt.Errorf("genesis %d hash: %w", i, err)
		}
		pubKey, err := hex.DecodeString(e.PubKey)
		if err != nil {
			return nil, fmt.Errorf("genesis %d pub_key: %w", i, err)
		}
		value, err := decimal.NewFromString(e.Value)
		if err != nil {
			return nil, fmt.Errorf("genesis %d value: %w", i, err)
		}
		if value.IsNegative() {
			return nil, fmt.Errorf("genesis %d value: negative %s", i, value)
		}
		pool.AddUTXO(utxo.NewOutPoint(*hash, e.Index), utxo.NewOutput(value, pubKey))
	}
	return pool, nil
}
