package handler

import (
	"fmt"
	"sync"
	"time"

	"github.com/scylladb/go-set/strset"
	"github.com/shopspring/decimal"
	"github.com/wx-shi/utxo-ledger/internal/crypto"
	"github.com/wx-shi/utxo-ledger/internal/tx"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
	"go.uber.org/zap"
)

// Handler owns a UTXO pool and applies epochs of transactions to it.
// Every call holds the handler's lock, so one HandleTxs is atomic with
// respect to any other call on the same handler.
type Handler struct {
	mu       sync.Mutex
	pool     *utxo.Pool
	verifier crypto.Verifier
	logger   *zap.Logger
	epoch    int64
}

type Option func(*Handler)

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithEpoch resumes the epoch counter, e.g. after loading a snapshot.
func WithEpoch(epoch int64) Option {
	return func(h *Handler) {
		h.epoch = epoch
	}
}

// NewHandler copies pool; later changes to pool do not reach the handler.
func NewHandler(pool *utxo.Pool, verifier crypto.Verifier, opts ...Option) *Handler {
	h := &Handler{
		pool:     utxo.NewPoolFrom(pool),
		verifier: verifier,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsValidTx reports whether t may be applied to the current pool.
func (h *Handler) IsValidTx(t *tx.Transaction) bool {
	return h.Validate(t) == nil
}

// Validate checks t against the current pool without modifying it:
//  1. every input references an unspent output,
//  2. every input signature is valid for the referenced owner,
//  3. no output is claimed twice by t,
//  4. no output value is negative,
//  5. the referenced values cover the output values.
//
// A rule failure is a *RuleError; broken structure wraps tx.ErrMalformedTx.
func (h *Handler) Validate(t *tx.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := t.Sanity(); err != nil {
		h.logger.Error("Handler::Validate", zap.Error(err))
		return err
	}
	return h.validate(t)
}

func (h *Handler) validate(t *tx.Transaction) error {
	claimed := strset.NewWithSize(len(t.Inputs))
	var inTotal, outTotal decimal.Decimal

	for i, in := range t.Inputs {
		op := in.OutPoint()
		prev, ok := h.pool.GetOutput(op)
		if !ok {
			return newRuleError(ReasonMissingUTXO, i, "%s not in pool", op)
		}

		msg, err := t.RawDataToSign(i)
		if err != nil {
			return fmt.Errorf("raw data for input %d: %w", i, err)
		}
		if !h.verifier.Verify(prev.PubKey, msg, in.Signature) {
			return newRuleError(ReasonBadSignature, i, "signature does not match owner of %s", op)
		}

		key := op.String()
		if claimed.Has(key) {
			return newRuleError(ReasonDoubleClaim, i, "%s claimed twice", op)
		}
		claimed.Add(key)

		inTotal = inTotal.Add(prev.Value)
	}

	for i, out := range t.Outputs {
		if out.Value.IsNegative() {
			return newRuleError(ReasonNegativeOutput, i, "value %s", out.Value)
		}
		outTotal = outTotal.Add(out.Value)
	}

	if outTotal.GreaterThan(inTotal) {
		return newRuleError(ReasonInsufficientInput, -1, "output %s > input %s", outTotal, inTotal)
	}
	return nil
}

// HandleTxs applies one epoch. Candidates are evaluated once each, in the
// order given, against the pool as left by the candidates accepted before
// them; of two conflicting transactions the first one wins. The accepted
// transactions are returned in acceptance order.
//
// A malformed candidate fails the whole call before the pool is touched.
func (h *Handler) HandleTxs(candidates []*tx.Transaction) ([]*tx.Transaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handleTxs(candidates)
}

// Epoch is the outcome of one HandleEpoch call.
type Epoch struct {
	Number   int64
	Accepted []*tx.Transaction
	Pool     *utxo.Pool // copy of the pool as left by this epoch
}

// HandleEpoch is HandleTxs that also returns the epoch number and pool it
// produced, read under the same lock as the batch itself.
func (h *Handler) HandleEpoch(candidates []*tx.Transaction) (*Epoch, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	accepted, err := h.handleTxs(candidates)
	if err != nil {
		return nil, err
	}
	return &Epoch{
		Number:   h.epoch,
		Accepted: accepted,
		Pool:     h.pool.Clone(),
	}, nil
}

func (h *Handler) handleTxs(candidates []*tx.Transaction) ([]*tx.Transaction, error) {
	start := time.Now()
	for i, t := range candidates {
		if err := t.Sanity(); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
	}

	accepted := make([]*tx.Transaction, 0, len(candidates))
	seen := strset.NewWithSize(len(candidates))
	for i, t := range candidates {
		if err := h.validate(t); err != nil {
			h.logger.Debug("Handler::Reject",
				zap.Int("candidate", i),
				zap.Stringer("reason", ReasonOf(err)),
				zap.Error(err))
			continue
		}

		hash := t.Hash()
		for _, in := range t.Inputs {
			h.pool.RemoveUTXO(in.OutPoint())
		}
		for j, out := range t.Outputs {
			h.pool.AddUTXO(utxo.NewOutPoint(hash, uint32(j)), out)
		}

		if seen.Has(hash.String()) {
			continue
		}
		seen.Add(hash.String())
		accepted = append(accepted, t)
	}
	h.epoch++

	h.logger.Info("Handler::HandleTxs",
		zap.Int64("epoch", h.epoch),
		zap.Int("candidates", len(candidates)),
		zap.Int("accepted", len(accepted)),
		zap.Int("pool_len", h.pool.Len()),
		zap.Duration("ttl", time.Since(start)))
	return accepted, nil
}

// Pool returns a copy of the current pool.
func (h *Handler) Pool() *utxo.Pool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Clone()
}

// Snapshot returns a copy of the current pool together with the epoch it
// belongs to.
func (h *Handler) Snapshot() (*utxo.Pool, int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Clone(), h.epoch
}

// Epoch is the number of epochs handled so far.
func (h *Handler) Epoch() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.epoch
}
