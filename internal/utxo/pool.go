package utxo

import (
	"sort"

	"github.com/shopspring/decimal"
)

const defaultMapCap = 1024

// Pool is the set of unspent outputs. It is not safe for concurrent use;
// callers that share a pool must serialize access themselves.
type Pool struct {
	m map[OutPoint]*Output
}

func NewPool() *Pool {
	return &Pool{m: make(map[OutPoint]*Output, defaultMapCap)}
}

// NewPoolFrom returns a deep copy of src. A nil src yields an empty pool.
func NewPoolFrom(src *Pool) *Pool {
	if src == nil {
		return NewPool()
	}
	return src.Clone()
}

// Clone returns a deep copy: neither the map nor any output is shared.
func (p *Pool) Clone() *Pool {
	m := make(map[OutPoint]*Output, len(p.m))
	for op, out := range p.m {
		m[op] = out.Clone()
	}
	return &Pool{m: m}
}

func (p *Pool) Contains(op OutPoint) bool {
	_, ok := p.m[op]
	return ok
}

// AddUTXO inserts a copy of out under op, overwriting any previous entry.
func (p *Pool) AddUTXO(op OutPoint, out *Output) {
	p.m[op] = out.Clone()
}

// RemoveUTXO deletes op. Removing an absent outpoint is a no-op.
func (p *Pool) RemoveUTXO(op OutPoint) {
	delete(p.m, op)
}

// GetOutput returns the output stored under op. The returned output is owned
// by the pool and must not be modified.
func (p *Pool) GetOutput(op OutPoint) (*Output, bool) {
	out, ok := p.m[op]
	return out, ok
}

func (p *Pool) Len() int {
	return len(p.m)
}

// AllUTXO returns every outpoint in the pool, ordered by hash then index.
func (p *Pool) AllUTXO() []OutPoint {
	ops := make([]OutPoint, 0, len(p.m))
	for op := range p.m {
		ops = append(ops, op)
	}
	sortOutPoints(ops)
	return ops
}

// ByOwner returns the outpoints locked to pubKey, ordered like AllUTXO.
func (p *Pool) ByOwner(pubKey []byte) []OutPoint {
	ops := make([]OutPoint, 0, 10)
	for op, out := range p.m {
		if out.OwnedBy(pubKey) {
			ops = append(ops, op)
		}
	}
	sortOutPoints(ops)
	return ops
}

// Balance sums the values of all outputs locked to pubKey.
func (p *Pool) Balance(pubKey []byte) decimal.Decimal {
	var amount decimal.Decimal
	for _, out := range p.m {
		if out.OwnedBy(pubKey) {
			amount = amount.Add(out.Value)
		}
	}
	return amount
}

func sortOutPoints(ops []OutPoint) {
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Less(ops[j])
	})
}
