package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/wx-shi/utxo-ledger/internal/config"
	"github.com/wx-shi/utxo-ledger/internal/crypto"
	"github.com/wx-shi/utxo-ledger/internal/db"
	"github.com/wx-shi/utxo-ledger/internal/handler"
	"github.com/wx-shi/utxo-ledger/internal/model"
	"github.com/wx-shi/utxo-ledger/internal/server"
	"github.com/wx-shi/utxo-ledger/internal/utxo"
	"github.com/wx-shi/utxo-ledger/pkg"
	"go.uber.org/zap"
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "./config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := pkg.NewLoggerWithEncoding(cfg.LogLevel, cfg.LogEnc)
	if err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Open the snapshot store; a previous process may still hold the lock
	var store db.Store
	if err := retry.Do(func() error {
		store, err = db.NewStore(cfg, logger)
		return err
	}, retry.Attempts(3), retry.Delay(time.Second)); err != nil {
		logger.Fatal("Error opening store", zap.Error(err))
	}

	pool, epoch, err := loadPool(cfg, store)
	if err != nil {
		logger.Fatal("Error loading pool", zap.Error(err))
	}
	logger.Info("Pool::Load", zap.Int("utxo_len", pool.Len()), zap.Int64("epoch", epoch))

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bdb, ok := store.(*db.BadgerDB); ok {
		bdb.GC(ctx)
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	h := handler.NewHandler(pool, crypto.ECDSAVerifier{},
		handler.WithLogger(logger), handler.WithEpoch(epoch))

	// Start HTTP server
	httpServer := server.NewServer(cfg.Server, logger, h, store)
	httpServer.Run()

	// Wait for signal
	<-sigCh
	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", zap.Error(err))
	}

	// Persist the final state and release the store
	pool, epoch = h.Snapshot()
	if err := store.SavePool(pool, epoch); err != nil {
		logger.Error("Store::SavePool", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Error("Store::Close", zap.Error(err))
	}
}

// loadPool prefers the stored snapshot and falls back to the configured
// genesis entries when the store is empty.
func loadPool(cfg *config.Config, store db.Store) (*utxo.Pool, int64, error) {
	epoch, err := store.GetStoreEpoch()
	if err != nil {
		return nil, 0, err
	}
	if epoch > 0 {
		pool, err := store.LoadPool()
		return pool, epoch, err
	}
	pool, err := model.GenesisPool(cfg.Genesis)
	return pool, 0, err
}
