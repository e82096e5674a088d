package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/config"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/events"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/homey"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/httpapi"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/mcpserver"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/observability"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/tools"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "homey-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, tracer, err := observability.Setup(ctx, mcpserver.Name, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warnw("tracer shutdown failed", "error", err)
		}
	}()

	var publisher events.Publisher = events.Nop{}
	if cfg.MQTTBrokerURL != "" {
		mqttPub, err := events.ConnectMQTT(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopicPrefix, log)
		if err != nil {
			log.Warnw("mqtt unavailable, events disabled", "broker", cfg.MQTTBrokerURL, "error", err)
		} else {
			defer mqttPub.Close()
			publisher = mqttPub
		}
	}

	client := homey.New(cfg,
		homey.WithLogger(log),
		homey.WithPublisher(publisher),
		homey.WithTracer(tracer),
	)
	defer client.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	outcome := client.Connect(connectCtx)
	cancel()
	switch outcome.Status {
	case homey.Failed:
		return fmt.Errorf("connect to hub: %s: %w", outcome.Reason, outcome.Err)
	case homey.DegradedToDemo:
		client = client.WithMode(homey.ModeDemo)
	}
	observability.SetDemoMode(client.Mode() == homey.ModeDemo)
	log.Infow("hub client ready", "status", outcome.Status.String(), "mode", client.Mode().String())

	registry, err := tools.NewRegistry(tools.FromClient(client),
		tools.WithLogger(log),
		tools.WithTracer(tracer),
	)
	if err != nil {
		return fmt.Errorf("tool registry: %w", err)
	}

	mcpSrv := mcpserver.New(registry, version, log)

	g, gctx := errgroup.WithContext(ctx)
	switch cfg.MCPTransport {
	case config.TransportSSE:
		g.Go(func() error { return mcpSrv.ServeSSE(gctx, cfg.MCPSSEAddr) })
	default:
		g.Go(func() error {
			err := mcpSrv.ServeStdio(gctx, os.Stdin, os.Stdout)
			// stdin closing means the client is gone
			stop()
			return err
		})
	}

	if cfg.HTTPAddr != "" {
		h := httpapi.NewHandler(registry, client, client.Mode().String(), log)
		httpSrv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.NewRouter(h, cfg, tracer),
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		g.Go(func() error {
			log.Infow("http api listening", "addr", cfg.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	log.Infow("shutting down")
	return err
}
