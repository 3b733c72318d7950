package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/auth"
	"safe-gateway-lite/internal/chainstate"
	"safe-gateway-lite/internal/config"
	"safe-gateway-lite/internal/delegate"
	"safe-gateway-lite/internal/handler"
	"safe-gateway-lite/internal/hub"
	"safe-gateway-lite/internal/indexer"
	"safe-gateway-lite/internal/server"
	"safe-gateway-lite/internal/store"
	"safe-gateway-lite/internal/txengine"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)
	st := store.NewWithOptions(store.Options{StateFile: cfg.StateFile, Logger: logger})

	tokenCfg := auth.DefaultTokenConfig(cfg.JWTSecret)
	tokenCfg.Expiry = cfg.TokenExpiry
	authenticator := auth.NewAuthenticator(auth.Options{
		Token:    tokenCfg,
		NonceTTL: cfg.NonceTTL,
		Domain:   cfg.SIWEDomain,
		Logger:   logger,
	})
	go authenticator.RunSweeper(ctx, time.Minute)

	var chain chainstate.Reader
	var memChain *chainstate.Memory
	if cfg.RPCURL != "" {
		client, err := chainstate.Dial(ctx, cfg.RPCURL, cfg.ChainID, cfg.UpstreamTimeout, logger)
		if err != nil {
			logger.Error("dial chain node", "error", err)
			os.Exit(1)
		}
		chain = client
	} else {
		logger.Warn("RPC_URL not set, using in-memory chain state")
		memChain = chainstate.NewMemory()
		chain = memChain
	}

	var idx indexer.Indexer
	if cfg.IndexerURL != "" {
		idx = indexer.NewClient(indexer.ClientOptions{
			BaseURL: cfg.IndexerURL,
			Timeout: cfg.UpstreamTimeout,
			RPS:     20,
			Burst:   40,
			Logger:  logger,
		})
	} else {
		logger.Warn("INDEXER_URL not set, using in-memory indexer")
		idx = indexer.NewMemory(indexer.MemoryOptions{OnExecute: func(tx indexer.Transaction) {
			if memChain != nil {
				memChain.SetNonce(common.HexToAddress(tx.Safe), tx.Nonce+1)
			}
		}})
	}

	events := hub.New(logger)
	engine := txengine.New(txengine.Options{
		Chains:   chainstate.Set{cfg.ChainID: chain},
		Indexer:  idx,
		Notifier: events,
		Logger:   logger,
	})

	router := server.NewRouter(server.Deps{
		Store:         st,
		Authenticator: authenticator,
		Delegates:     delegate.NewRegistry(st, time.Now, logger),
		Engine:        engine,
		Hub:           events,
		Logger:        logger,
		AuthRateLimit: cfg.AuthRateLimit,
		SecureCookie:  cfg.TLSCertFile != "",
		About: handler.AboutHandler{
			Name:        "safe-gateway-lite",
			Version:     cfg.AppVersion,
			BuildNumber: cfg.BuildNumber,
		},
	})

	if err := server.Run(ctx, cfg, router, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
