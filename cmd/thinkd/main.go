package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/actions"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/agents"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/api"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/auth"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/config"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/contracts"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/escrow"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/observability/alerting"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/relayer"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("thinkd failed: %v", err)
	}
}

func run(ctx context.Context) error {
	settings := loadSettings()
	cfg, err := config.Load(settings)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.Outputs,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	mainLog := logger.Named("thinkd")

	creds := auth.NewCredentials()
	var tokens *auth.TokenManager
	switch {
	case cfg.AuthMode == config.AuthModePrivateKey && cfg.PrivateKey != "":
		if err := creds.InitializeWithPrivateKey(cfg.PrivateKey); err != nil {
			return err
		}
		mainLog.Info("write path ready", "mode", "private_key")
	case cfg.HasJWTAuth():
		tokens = auth.NewTokenManager(auth.TokenConfig{
			AuthURL:      cfg.JWT.AuthURL,
			ClientID:     cfg.JWT.ClientID,
			ClientSecret: cfg.JWT.ClientSecret,
			Username:     cfg.JWT.Username,
			Password:     cfg.JWT.Password,
			RefreshToken: cfg.JWT.RefreshToken,
		})
		if creds.InitializeWithJWT(ctx, tokens) {
			mainLog.Info("write path ready", "mode", "jwt")
		} else {
			mainLog.Warn("authentication failed, continuing read-only")
		}
	default:
		mainLog.Info("no write credentials configured, running read-only")
	}
	defer creds.Logout(context.Background())

	var dispatcher *relayer.Dispatcher
	if creds.Mode() == auth.ModeJWT && cfg.HasRelayer() {
		dispatcher, err = relayer.NewDispatcher(relayer.Config{
			URL:             cfg.Relayer.URL,
			DefaultGasLimit: cfg.Relayer.DefaultGasLimit,
			Poll: relayer.PollConfig{
				Interval:    time.Duration(cfg.Relayer.PollIntervalSec) * time.Second,
				MaxAttempts: cfg.Relayer.PollMaxAttempts,
			},
		}, creds.Tokens())
		if err != nil {
			return err
		}
	}

	backend, err := contracts.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer backend.Close()

	gateway, err := contracts.NewGateway(contracts.GatewayConfig{
		ChainID:         cfg.ChainID,
		RegistryAddress: cfg.RegistryAddress,
		CommAddress:     cfg.CommAddress,
		EscrowAddress:   cfg.EscrowAddress,
		DefaultGasLimit: cfg.Relayer.DefaultGasLimit,
		Poll: relayer.PollConfig{
			Interval:    time.Duration(cfg.Relayer.PollIntervalSec) * time.Second,
			MaxAttempts: cfg.Relayer.PollMaxAttempts,
		},
	}, backend, creds, dispatcher)
	if err != nil {
		return err
	}

	ledger, err := escrow.NewLedger(gateway)
	if err != nil {
		return err
	}

	cacheCfg := agents.CacheConfig{}
	if cfg.HasAgentCache() {
		cacheCfg = agents.CacheConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			TTL:      time.Duration(cfg.Redis.CacheTTLSec) * time.Second,
		}
	}
	sync, err := agents.NewSync(gateway, cacheCfg)
	if err != nil {
		return err
	}
	defer func() { _ = sync.Close() }()

	registry := actions.NewRegistry()
	if err := registry.Register(actions.AgentActions(sync)...); err != nil {
		return err
	}
	if err := registry.Register(actions.CommActions(gateway)...); err != nil {
		return err
	}
	if err := registry.Register(actions.EscrowActions(ledger)...); err != nil {
		return err
	}

	var alerts alerting.Dispatcher
	if cfg.AlertWebhookURL != "" {
		alerts = alerting.NewFanout(&alerting.WebhookNotifier{URL: cfg.AlertWebhookURL})
	}

	addr := cfg.API.Address
	if addr == "" {
		addr = ":8080"
	}
	server := api.NewServer(addr, registry, sync, alerts)
	return server.Start(ctx)
}

// loadSettings layers process environment over an optional YAML settings
// file named by THINK_CONFIG.
func loadSettings() config.Settings {
	sources := []config.Settings{config.EnvSettings{}}
	if path := os.Getenv("THINK_CONFIG"); path != "" {
		if file, err := config.LoadFileSettings(path); err == nil {
			sources = append(sources, file)
		} else {
			log.Printf("settings file %s skipped: %v", path, err)
		}
	}
	return config.Layered(sources)
}
