package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ashureev/agent-studio/internal/api"
	"github.com/ashureev/agent-studio/internal/console"
	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/events"
)

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve")
	port := fs.String("port", a.cfg.Port, "listen port")
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}

	a.bootstrap(ctx)

	var origins []string
	if a.cfg.FrontendURL != "" {
		origins = []string{a.cfg.FrontendURL}
	}
	hub := events.NewHub(a.studio, a.cfg.FrontendURL, a.cfg.IsDevelopment(), a.logger)
	router := api.NewRouter(api.RouterConfig{
		Studio:         api.NewStudioHandler(api.NewHandler(a.studio, a.logger)),
		Events:         hub,
		AllowedOrigins: origins,
		IsDev:          a.cfg.IsDevelopment(),
	})

	// No WriteTimeout: /ws/events connections are long-lived.
	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server listening", "addr", srv.Addr, "api_url", a.cfg.APIURL, "dev", a.cfg.IsDevelopment())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down gracefully...")
	hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("Server stopped successfully")
	return nil
}

// bootstrap loads accounts, the agent roster and the tool catalog. Failures
// are logged; the console stays usable against a partially reachable backend.
func (a *app) bootstrap(ctx context.Context) {
	if _, err := a.studio.LoadAccounts(ctx); err != nil {
		a.logger.Warn("Failed to load accounts", "error", err)
	}
	if _, err := a.studio.LoadCustomAgents(ctx); err != nil {
		a.logger.Warn("Failed to load custom agents", "error", err)
	}
	a.studio.LoadTools(ctx)
}

func runChat(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("chat")
	agentType := fs.String("agent", "", "blueprint agent to start with")
	customID := fs.String("custom", "", "custom agent id to start with")
	backend := fs.String("backend", "", "engine for blueprint agents (langgraph|agentcore)")
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}

	if *backend != "" {
		if err := a.studio.SelectBackend(domain.Backend(*backend)); err != nil {
			return err
		}
	}
	if *agentType != "" {
		t, err := domain.ParseAgentType(*agentType)
		if err != nil {
			return err
		}
		if err := a.studio.SelectAgentType(t); err != nil {
			return err
		}
	}
	if *customID != "" {
		if err := a.selectCustom(ctx, *customID); err != nil {
			return err
		}
	}

	return console.Run(ctx, a.studio)
}
