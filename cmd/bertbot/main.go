package main

import (
	"os"

	"github.com/comigor/bertbot/internal/agent"
	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/gateway"
	"github.com/comigor/bertbot/internal/history"
	"github.com/comigor/bertbot/internal/llm"
	"github.com/comigor/bertbot/internal/logger"
	"github.com/comigor/bertbot/internal/ratelimit"
	"github.com/comigor/bertbot/internal/security"
	"github.com/comigor/bertbot/internal/service"
	"github.com/comigor/bertbot/internal/session"
	"github.com/comigor/bertbot/pkg/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	client, err := llm.NewClient(cfg.Provider)
	if err != nil {
		logger.L.Error("failed to initialize provider", "error", err)
		os.Exit(1)
	}

	manager := tools.NewDefaultManager(cfg)
	runtime := agent.New(client, manager, cfg.Provider)

	sessions := session.NewStore(cfg.Sessions)
	defer sessions.Close()

	var allowlist *security.Allowlist
	if cfg.Security.AllowlistPath != "" {
		allowlist, err = security.FromFile(cfg.Security.AllowlistPath)
		if err != nil {
			logger.L.Error("failed to load allowlist", "error", err)
			os.Exit(1)
		}
	}

	var transcript *history.Log
	if cfg.History.Enabled {
		transcript = history.Open(cfg.History)
		defer transcript.Close()
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit)
		defer limiter.Close()
		logger.L.Info("rate limiting enabled")
	}

	svc := service.New(runtime, sessions, allowlist, transcript)

	gw := gateway.New(cfg.Gateway, svc, limiter)
	if err := gw.ListenAndServe(); err != nil {
		logger.L.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}
