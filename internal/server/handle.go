package server

import (
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gin-gonic/gin"
	"github.com/wx-shi/utxo-ledger/internal/handler"
	"github.com/wx-shi/utxo-ledger/internal/model"
	"github.com/wx-shi/utxo-ledger/internal/tx"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
	"github.com/wx-shi/utxo-ledger/pkg"
	"go.uber.org/zap"
)

var errNoStore = errors.New("no store configured")

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"code": http.StatusBadRequest,
		"msg":  err.Error(),
	})
}

func internalError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"code": http.StatusInternalServerError,
		"msg":  err.Error(),
	})
}

func ok(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": data,
	})
}

func (s *Server) validateHandle() func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		var req model.Transaction
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
		t, err := req.ToTx()
		if err != nil {
			badRequest(ctx, err)
			return
		}

		reply := model.ValidateReply{Hash: t.Hash().String(), Valid: true}
		if err := s.handler.Validate(t); err != nil {
			if errors.Is(err, tx.ErrMalformedTx) {
				badRequest(ctx, err)
				return
			}
			reply.Valid = false
			reply.Reason = handler.ReasonOf(err).String()
			reply.Msg = err.Error()
		}
		ok(ctx, reply)
	}
}

func (s *Server) handleTxsHandle() func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		var req model.HandleRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
		candidates := make([]*tx.Transaction, 0, len(req.Txs))
		for i := range req.Txs {
			t, err := req.Txs[i].ToTx()
			if err != nil {
				badRequest(ctx, err)
				return
			}
			candidates = append(candidates, t)
		}

		epoch, err := s.handler.HandleEpoch(candidates)
		if err != nil {
			badRequest(ctx, err)
			return
		}

		hashes := make([]chainhash.Hash, 0, len(epoch.Accepted))
		ids := make([]string, 0, len(epoch.Accepted))
		for _, t := range epoch.Accepted {
			hash := t.Hash()
			hashes = append(hashes, hash)
			ids = append(ids, hash.String())
		}
		persisted := s.saveSnapshot(epoch.Pool, hashes, epoch.Number)

		ok(ctx, model.HandleReply{
			Epoch:     epoch.Number,
			Accepted:  ids,
			PoolLen:   epoch.Pool.Len(),
			Persisted: persisted,
		})
	}
}

// saveSnapshot persists the accepted hashes and pool when a store is
// configured. An older epoch's pool never overwrites a newer one. It
// reports whether the accepted hashes reached the store; the pool is saved
// again on shutdown, so only the index can be lost for good.
func (s *Server) saveSnapshot(pool *utxo.Pool, accepted []chainhash.Hash, epoch int64) bool {
	if s.store == nil {
		return false
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	persisted := true
	if err := s.store.SaveAccepted(accepted, epoch); err != nil {
		s.logger.Error("Store::SaveAccepted", zap.Int64("epoch", epoch), zap.Error(err))
		persisted = false
	}

	if epoch <= s.savedEpoch {
		return persisted
	}
	if err := s.store.SavePool(pool, epoch); err != nil {
		s.logger.Error("Store::SavePool", zap.Int64("epoch", epoch), zap.Error(err))
		return false
	}
	s.savedEpoch = epoch
	return persisted
}

func (s *Server) signDataHandle() func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		var req model.SignDataRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
		t, err := req.Tx.ToTx()
		if err != nil {
			badRequest(ctx, err)
			return
		}
		data, err := t.RawDataToSign(req.Index)
		if err != nil {
			badRequest(ctx, err)
			return
		}
		ok(ctx, model.SignDataReply{Data: hex.EncodeToString(data)})
	}
}

func (s *Server) utxoHandle() func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		var req model.UTXORequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
		pubKey, err := hex.DecodeString(req.PubKey)
		if err != nil {
			badRequest(ctx, err)
			return
		}
		if req.PageSize == 0 {
			req.PageSize = defaultPageSize
		}

		pool := s.handler.Pool()
		ops := pool.ByOwner(pubKey)
		ok(ctx, model.UTXOReply{
			Balance:   pool.Balance(pubKey).StringFixed(8),
			Page:      req.Page,
			PageSize:  req.PageSize,
			TotalSize: len(ops),
			Utxos:     toUTXOs(pool, pkg.Paginate(ops, req.Page, req.PageSize)),
		})
	}
}

func (s *Server) utxosHandle() func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		var req model.UTXORequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
		if req.PageSize == 0 {
			req.PageSize = defaultPageSize
		}

		pool := s.handler.Pool()
		ops := pool.AllUTXO()
		ok(ctx, model.UTXOReply{
			Page:      req.Page,
			PageSize:  req.PageSize,
			TotalSize: len(ops),
			Utxos:     toUTXOs(pool, pkg.Paginate(ops, req.Page, req.PageSize)),
		})
	}
}

func (s *Server) epochHandle() func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		reply := model.EpochReply{Epoch: s.handler.Epoch()}
		if s.store != nil {
			epoch, err := s.store.GetStoreEpoch()
			if err != nil {
				internalError(ctx, err)
				return
			}
			reply.StoreEpoch = epoch
		}
		ok(ctx, reply)
	}
}

func (s *Server) txHandle() func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		var req model.TxRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
		if s.store == nil {
			internalError(ctx, errNoStore)
			return
		}
		hash, err := chainhash.NewHashFromStr(req.Hash)
		if err != nil {
			badRequest(ctx, err)
			return
		}
		epoch, found, err := s.store.GetTxEpoch(*hash)
		if err != nil {
			internalError(ctx, err)
			return
		}
		ok(ctx, model.TxReply{Hash: hash.String(), Accepted: found, Epoch: epoch})
	}
}

func toUTXOs(pool *utxo.Pool, ops []utxo.OutPoint) []*model.UTXO {
	utxos := make([]*model.UTXO, 0, len(ops))
	for _, op := range ops {
		out, _ := pool.GetOutput(op)
		utxos = append(utxos, model.NewUTXO(op, out))
	}
	return utxos
}
