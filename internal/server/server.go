package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wx-shi/utxo-ledger/internal/config"
	"github.com/wx-shi/utxo-ledger/internal/db"
	"github.com/wx-shi/utxo-ledger/internal/handler"
	"github.com/wx-shi/utxo-ledger/pkg"
	"go.uber.org/zap"
)

const (
	// readTimeout is the maximum duration for reading the entire
	// request, including the body.
	readTimeout = 1 * time.Minute

	// writeTimeout is the maximum duration before timing out
	// writes of the response. It is reset whenever a new
	// request's header is read.
	writeTimeout = 1 * time.Minute

	// idleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled.
	idleTimeout = 5 * time.Minute

	defaultPageSize = 100
)

type Server struct {
	conf    *config.ServerConfig
	logger  *zap.Logger
	handler *handler.Handler
	store   db.Store // nil disables snapshots
	engine  *gin.Engine
	hs      *http.Server

	saveMu     sync.Mutex
	savedEpoch int64
}

func NewServer(conf *config.ServerConfig, logger *zap.Logger, h *handler.Handler, store db.Store) *Server {

	s := &Server{
		conf:    conf,
		logger:  logger,
		handler: h,
		store:   store,
	}

	s.initGin()
	return s
}

func (s *Server) initGin() {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(pkg.LogMiddleware(s.logger), pkg.CORSMiddleware(), gin.Recovery())

	engine.POST("validate", s.validateHandle())
	engine.POST("handle", s.handleTxsHandle())
	engine.POST("sign_data", s.signDataHandle())
	engine.POST("utxo", s.utxoHandle())
	engine.POST("utxos", s.utxosHandle())
	engine.POST("epoch", s.epochHandle())
	engine.POST("tx", s.txHandle())
	s.engine = engine
}

// Handler exposes the gin engine, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run() {
	addr := fmt.Sprintf("%s:%d", s.conf.Host, s.conf.Port)
	hs := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	s.hs = hs

	go func() {
		if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("listen", zap.Error(err))
		}
	}()
	s.logger.Info("listen", zap.String("addr", addr))

}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.hs == nil {
		return nil
	}
	return s.hs.Shutdown(ctx)
}
