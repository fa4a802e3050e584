// cmd/greenbot/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/accountlink"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/application"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/backend"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/chat"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/auth"
	commonaws "github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/aws"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/logger"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/metrics"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/decision"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/engine"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/notify"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/pipeline"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/session"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewStructured("error", "json").Error("failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting greenbot workflow engine", map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis ping failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer rdb.Close()

	tokens := auth.NewTokenSource(cfg.Backend)
	backendClient := backend.NewClient(cfg.Backend, tokens)
	verifyClient := verify.NewClient(cfg.Verify)
	gateway := chat.NewRestGateway(cfg.Chat)

	dispatcher := notify.NewDispatcher(cfg.Notifications.Workers, cfg.Notifications.QueueSize, log)
	defer dispatcher.Close()

	var mailer decision.Mailer
	if cfg.Notifications.AWS.SES.Enabled {
		m, err := commonaws.NewStaffMailer(ctx, cfg.Notifications.AWS.Region,
			cfg.Notifications.AWS.SES.FromEmail, cfg.Notifications.AWS.SES.StaffList)
		if err != nil {
			log.Error("failed to initialize staff mailer", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		mailer = m
	}

	var alerter pipeline.Alerter
	if cfg.Notifications.AWS.SNS.Enabled {
		a, err := commonaws.NewOpsAlerter(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.AWS.SNS.TopicARN)
		if err != nil {
			log.Error("failed to initialize ops alerter", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		alerter = a
	}

	applicationSessions := session.NewStore(application.NewForm)
	linkSessions := session.NewStore(accountlink.NewLinkForm)

	validator := application.NewValidator(cfg.Validation, backendClient, log)
	identityCache := accountlink.NewIdentityCache(rdb, time.Duration(cfg.Identity.TTLMinutes)*time.Minute)
	linkFlow := accountlink.NewFlow(linkSessions, verifyClient, backendClient, identityCache, log)

	submissionPipeline := pipeline.New(applicationSessions, backendClient, gateway, alerter, cfg.Review, log)
	orchestrator := decision.New(backendClient, gateway, dispatcher, mailer, cfg.Decision, log)

	// The chat-platform command layer drives the engine; it registers its
	// handlers against this instance.
	eng := engine.New(applicationSessions, validator, linkFlow, submissionPipeline, orchestrator)
	log.Info("workflow engine ready", map[string]interface{}{
		"sections":  len(application.SectionOrder),
		"staffMail": mailer != nil,
		"opsAlerts": alerter != nil,
	})

	go trackSessionGauges(ctx, eng.Applications, eng.Links.Sessions())

	metricsServer := &http.Server{Addr: cfg.Metrics.Address, Handler: metricsHandler()}
	go func() {
		log.Info("metrics endpoint listening", map[string]interface{}{"address": cfg.Metrics.Address})
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func trackSessionGauges(ctx context.Context, apps *session.Store[*application.Form], links *session.Store[*accountlink.LinkForm]) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SessionsActive.WithLabelValues("application").Set(float64(apps.Len()))
			metrics.SessionsActive.WithLabelValues("account_link").Set(float64(links.Len()))
		}
	}
}
