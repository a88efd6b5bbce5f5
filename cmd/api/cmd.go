package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/serviteq/fieldops-backend/internal/bootstrap"
	webhookclient "github.com/serviteq/fieldops-backend/internal/client/webhook"
	"github.com/serviteq/fieldops-backend/internal/config"
	"github.com/serviteq/fieldops-backend/internal/handlers"
	"github.com/serviteq/fieldops-backend/internal/metrics"
	"github.com/serviteq/fieldops-backend/internal/response"
	"github.com/serviteq/fieldops-backend/internal/router"
	"github.com/serviteq/fieldops-backend/internal/services"
	"github.com/serviteq/fieldops-backend/internal/store"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg, err := config.New()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// metrics
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// stores
	tstore := store.NewTableStore(bs.Firestore)
	cstore := store.NewChatStore(bs.Firestore)

	// services
	executor := services.NewToolExecutor(tstore, m)
	chserv := services.NewChatService(bs.VertexAdapter, executor, cstore, m, cfg.ChatTTL, cfg.ChatHistory, cfg.MaxToolRounds)

	var bridge handlers.AgentBridge
	if cfg.AgentWebhookURL != "" {
		wc := webhookclient.NewClient(cfg.WebhookTimeout)
		bridge = services.NewAgentBridge(wc, cfg.AgentWebhookURL, m)
	}

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Firebase = bs.Firebase
	deps.ChatSvc = chserv
	deps.BridgeSvc = bridge
	deps.AgentMode = cfg.AgentMode

	// router
	r := router.NewRouter(deps, registry)
	err = http.ListenAndServe(":8080", r)
	exitOnError("server start failed", err, bs.Log)
}
