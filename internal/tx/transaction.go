package tx

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
)

// pver is the protocol version handed to the wire encoding helpers.
const pver = 0

var (
	// ErrMalformedTx marks transactions whose structure is broken, as opposed
	// to well formed transactions that break a ledger rule.
	ErrMalformedTx = errors.New("malformed transaction")

	ErrInputIndex = errors.New("input index out of range")
)

// Input spends the output OutputIndex of transaction PrevTxHash.
type Input struct {
	PrevTxHash  chainhash.Hash
	OutputIndex uint32
	Signature   []byte
}

func (in *Input) OutPoint() utxo.OutPoint {
	return utxo.NewOutPoint(in.PrevTxHash, in.OutputIndex)
}

// Transaction moves value from the outputs its inputs reference to new outputs.
type Transaction struct {
	Inputs  []*Input
	Outputs []*utxo.Output
}

func NewTransaction() *Transaction {
	return &Transaction{
		Inputs:  make([]*Input, 0, 1),
		Outputs: make([]*utxo.Output, 0, 1),
	}
}

func (t *Transaction) AddInput(prevTxHash chainhash.Hash, outputIndex uint32) {
	t.Inputs = append(t.Inputs, &Input{PrevTxHash: prevTxHash, OutputIndex: outputIndex})
}

func (t *Transaction) RemoveInput(i int) error {
	if i < 0 || i >= len(t.Inputs) {
		return fmt.Errorf("%w: %d of %d", ErrInputIndex, i, len(t.Inputs))
	}
	t.Inputs = append(t.Inputs[:i], t.Inputs[i+1:]...)
	return nil
}

func (t *Transaction) AddOutput(value decimal.Decimal, pubKey []byte) {
	t.Outputs = append(t.Outputs, utxo.NewOutput(value, pubKey))
}

// AddSignature sets the signature of input i.
func (t *Transaction) AddSignature(sig []byte, i int) error {
	if i < 0 || i >= len(t.Inputs) {
		return fmt.Errorf("%w: %d of %d", ErrInputIndex, i, len(t.Inputs))
	}
	if t.Inputs[i] == nil {
		return fmt.Errorf("%w: input %d is nil", ErrMalformedTx, i)
	}
	t.Inputs[i].Signature = append([]byte(nil), sig...)
	return nil
}

// RawDataToSign returns the message input i signs: the outpoint it spends
// followed by every output of the transaction. Signatures are not covered.
func (t *Transaction) RawDataToSign(i int) ([]byte, error) {
	if i < 0 || i >= len(t.Inputs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInputIndex, i, len(t.Inputs))
	}
	in := t.Inputs[i]
	if in == nil {
		return nil, fmt.Errorf("%w: input %d is nil", ErrMalformedTx, i)
	}

	buf := new(bytes.Buffer)
	_, _ = buf.Write(in.PrevTxHash[:])
	_ = wire.WriteVarInt(buf, pver, uint64(in.OutputIndex))
	for j, out := range t.Outputs {
		if out == nil {
			return nil, fmt.Errorf("%w: output %d is nil", ErrMalformedTx, j)
		}
		writeOutput(buf, out)
	}
	return buf.Bytes(), nil
}

// RawTx serializes the whole transaction, signatures included.
func (t *Transaction) RawTx() []byte {
	buf := new(bytes.Buffer)
	_ = wire.WriteVarInt(buf, pver, uint64(len(t.Inputs)))
	for _, in := range t.Inputs {
		if in == nil {
			in = &Input{}
		}
		_, _ = buf.Write(in.PrevTxHash[:])
		_ = wire.WriteVarInt(buf, pver, uint64(in.OutputIndex))
		_ = wire.WriteVarBytes(buf, pver, in.Signature)
	}
	_ = wire.WriteVarInt(buf, pver, uint64(len(t.Outputs)))
	for _, out := range t.Outputs {
		if out == nil {
			out = &utxo.Output{}
		}
		writeOutput(buf, out)
	}
	return buf.Bytes()
}

// Hash is the double sha256 of RawTx. Equal content always gives an equal hash.
func (t *Transaction) Hash() chainhash.Hash {
	return chainhash.DoubleHashH(t.RawTx())
}

// Sanity reports structural defects that make the transaction impossible to
// evaluate. The returned error wraps ErrMalformedTx.
func (t *Transaction) Sanity() error {
	if t == nil {
		return fmt.Errorf("%w: nil transaction", ErrMalformedTx)
	}
	for i, in := range t.Inputs {
		if in == nil {
			return fmt.Errorf("%w: input %d is nil", ErrMalformedTx, i)
		}
	}
	for i, out := range t.Outputs {
		if out == nil {
			return fmt.Errorf("%w: output %d is nil", ErrMalformedTx, i)
		}
	}
	return nil
}

func writeOutput(w io.Writer, out *utxo.Output) {
	_ = wire.WriteVarString(w, pver, out.Value.String())
	_ = wire.WriteVarBytes(w, pver, out.PubKey)
}
