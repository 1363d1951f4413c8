package tx

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTx() *Transaction {
	t := NewTransaction()
	t.AddInput(chainhash.DoubleHashH([]byte("genesis")), 0)
	t.AddInput(chainhash.DoubleHashH([]byte("genesis")), 1)
	t.AddOutput(decimal.NewFromInt(4), []byte{0x02, 0x01})
	t.AddOutput(decimal.RequireFromString("1.5"), []byte{0x02, 0x02})
	return t
}

func TestHash(t *testing.T) {
	t.Run("stable and content derived", func(t *testing.T) {
		a := newTestTx()
		b := newTestTx()
		assert.Equal(t, a.Hash(), a.Hash())
		assert.Equal(t, a.Hash(), b.Hash())

		// equal values with a different exponent
		b.Outputs[1].Value = decimal.New(150, -2)
		assert.Equal(t, a.Hash(), b.Hash())

		b.Outputs[0].Value = decimal.NewFromInt(5)
		assert.NotEqual(t, a.Hash(), b.Hash())
	})

	t.Run("covers signatures", func(t *testing.T) {
		a := newTestTx()
		before := a.Hash()
		require.NoError(t, a.AddSignature([]byte{0x30, 0x01}, 0))
		assert.NotEqual(t, before, a.Hash())
	})
}

func TestRawDataToSign(t *testing.T) {
	a := newTestTx()

	m0, err := a.RawDataToSign(0)
	require.NoError(t, err)
	m1, err := a.RawDataToSign(1)
	require.NoError(t, err)
	assert.NotEqual(t, m0, m1)

	t.Run("ignores signatures", func(t *testing.T) {
		require.NoError(t, a.AddSignature([]byte{0x30, 0x02}, 0))
		got, err := a.RawDataToSign(0)
		require.NoError(t, err)
		assert.Equal(t, m0, got)
	})

	t.Run("covers outputs", func(t *testing.T) {
		b := newTestTx()
		b.Outputs[0].PubKey = []byte{0x02, 0x09}
		got, err := b.RawDataToSign(0)
		require.NoError(t, err)
		assert.NotEqual(t, m0, got)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := a.RawDataToSign(2)
		assert.ErrorIs(t, err, ErrInputIndex)
		_, err = a.RawDataToSign(-1)
		assert.ErrorIs(t, err, ErrInputIndex)
	})
}

func TestInputs(t *testing.T) {
	a := newTestTx()
	second := a.Inputs[1].OutPoint()

	require.NoError(t, a.RemoveInput(0))
	require.Len(t, a.Inputs, 1)
	assert.Equal(t, second, a.Inputs[0].OutPoint())

	assert.ErrorIs(t, a.RemoveInput(3), ErrInputIndex)
	assert.ErrorIs(t, a.AddSignature([]byte{1}, 5), ErrInputIndex)
}

func TestSanity(t *testing.T) {
	assert.NoError(t, newTestTx().Sanity())

	var nilTx *Transaction
	assert.ErrorIs(t, nilTx.Sanity(), ErrMalformedTx)

	a := newTestTx()
	a.Inputs = append(a.Inputs, nil)
	assert.ErrorIs(t, a.Sanity(), ErrMalformedTx)

	b := newTestTx()
	b.Outputs[0] = nil
	assert.ErrorIs(t, b.Sanity(), ErrMalformedTx)
	_, err := b.RawDataToSign(0)
	assert.ErrorIs(t, err, ErrMalformedTx)
}
