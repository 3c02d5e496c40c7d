package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fitstack/checkout-bridge/config"
	"github.com/fitstack/checkout-bridge/internal/api"
	"github.com/fitstack/checkout-bridge/internal/checkout"
	"github.com/fitstack/checkout-bridge/internal/events"
	"github.com/fitstack/checkout-bridge/internal/platform/liqpay"
	"github.com/fitstack/checkout-bridge/internal/session"
	"github.com/fitstack/checkout-bridge/internal/tokens"
	"github.com/fitstack/checkout-bridge/internal/translate"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the invoice listener and the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger := setupLogger(cfg.Server.LogLevel)
	if parent == nil {
		parent = context.Background()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer closeStore()

	webhookURL := tokens.Resolve(cfg.Checkout.WebhookURL, tokens.FromEnviron(os.Environ()))
	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"invoices", cfg.Checkout.InvoicesCollection,
		"sessions", cfg.Checkout.SessionsCollection,
		"webhook_url", webhookURL,
	)

	var eval translate.Evaluator
	if cfg.Checkout.InvoiceMapping != "" {
		compiled, err := translate.CompileJSONata(cfg.Checkout.InvoiceMapping)
		if err != nil {
			return fmt.Errorf("compile invoice mapping: %w", err)
		}
		eval = compiled
	}

	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		return err
	}
	recorder := events.NewRecorder(publisher, logger)

	gateway := liqpay.NewClient(liqpay.ClientConfig{
		PublicKey:  cfg.LiqPay.PublicKey,
		PrivateKey: cfg.LiqPay.PrivateKey,
		BaseURL:    cfg.LiqPay.BaseURL,
		Timeout:    cfg.LiqPay.Timeout,
		Logger:     logger,
	})

	orchestrator := checkout.NewOrchestrator(checkout.Deps{
		Gateway:            gateway,
		Translator:         translate.NewInvoiceTranslator(eval, webhookURL),
		Sessions:           session.NewStore(docs, cfg.Checkout.SessionsCollection, recorder, logger),
		Docs:               docs,
		InvoicesCollection: cfg.Checkout.InvoicesCollection,
		Recorder:           recorder,
		Logger:             logger,
	})

	listener := checkout.NewListener(docs, cfg.Checkout.InvoicesCollection, orchestrator, logger)
	router := api.SetupRouter(api.NewHandler(orchestrator, logger), cfg.Server.GinMode, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Run(ctx); err != nil {
			errCh <- fmt.Errorf("invoice listener: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("component failed, shutting down", "error", runErr)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	wg.Wait()

	logger.Info("stopped gracefully")
	return runErr
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	if cfg.Endpoint == "" {
		return events.Nop{}, nil
	}
	publisher, err := events.NewHTTPPublisher(events.HTTPOptions{
		Endpoint:     cfg.Endpoint,
		Secret:       []byte(cfg.Secret),
		AllowedTypes: events.ParseTypes(cfg.AllowedTypes),
	})
	if err != nil {
		return nil, fmt.Errorf("create event publisher: %w", err)
	}
	return publisher, nil
}
