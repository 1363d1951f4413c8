package utxo

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/shopspring/decimal"
)

// OutPoint identifies one output of a prior transaction.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns the identifier of output index of the transaction hash.
func NewOutPoint(hash chainhash.Hash, index uint32) OutPoint {
	return OutPoint{Hash: hash, Index: index}
}

// String renders the outpoint as hash:index, the same shape the store keys use.
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash, o.Index)
}

// Less orders outpoints by hash bytes, then by index.
func (o OutPoint) Less(other OutPoint) bool {
	if c := bytes.Compare(o.Hash[:], other.Hash[:]); c != 0 {
		return c < 0
	}
	return o.Index < other.Index
}

// Output is a spendable amount locked to the owner's public key.
type Output struct {
	PubKey []byte
	Value  decimal.Decimal
}

// NewOutput copies pubKey so callers may reuse their buffer.
func NewOutput(value decimal.Decimal, pubKey []byte) *Output {
	return &Output{
		PubKey: append([]byte(nil), pubKey...),
		Value:  value,
	}
}

func (o *Output) Clone() *Output {
	if o == nil {
		return nil
	}
	return NewOutput(o.Value, o.PubKey)
}

// OwnedBy reports whether pubKey is the owning credential of the output.
func (o *Output) OwnedBy(pubKey []byte) bool {
	return bytes.Equal(o.PubKey, pubKey)
}
