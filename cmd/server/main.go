package main

import (
	"context"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/livepoll/internal/adapters/realtime"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := repository.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	hub := realtime.NewHub(logger)
	pollService := services.NewPollService(repos.Polls)
	voteService := services.NewVoteService(repos.Votes, hub, logger)

	resolver := http.AddressResolver{TrustForwardedFor: cfg.TrustForwardedFor}
	var limiter *http.AddressLimiter
	if cfg.VoteRateLimit > 0 {
		limiter = http.NewAddressLimiter(cfg.VoteRateLimit, cfg.VoteRateBurst)
		go limiter.Run(ctx, time.Minute)
	}

	handler := http.NewHandler(
		http.NewPollHandler(pollService),
		http.NewVoteHandler(voteService, resolver),
		realtime.NewHandler(hub, pollService, cfg.AllowedOrigins, logger),
		http.RouterConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			Resolver:       resolver,
			VoteLimiter:    limiter,
			Logger:         logger,
		},
	)
	server := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "db_driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	hub.DisconnectAll()
	return server.Shutdown(shutdownCtx)
}
