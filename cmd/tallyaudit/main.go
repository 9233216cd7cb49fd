package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	flag.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "database driver (postgres or sqlite)")
	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DB, "db-name", cfg.Postgres.DB, "Database name")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum duration of the audit")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}
	// auditing must not change the schema
	cfg.AutoMigrate = false

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repos, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}
	defer repos.Close()

	logger.Info("starting tally audit", "driver", cfg.DBDriver)

	drifted, err := services.NewAuditService(repos.Tallies).AuditAll(ctx)
	if err != nil {
		logger.Error("tally audit failed", "error", err)
		return 1
	}

	for _, report := range drifted {
		logger.Warn("tally drift",
			"poll_id", report.PollID,
			"option_votes", report.OptionVotes,
			"voted_ips", report.VotedIPs,
			"voted_user_ids", report.VotedUserIDs,
		)
	}
	if len(drifted) > 0 {
		logger.Error("tally audit found inconsistent polls", "count", len(drifted))
		return 2
	}

	logger.Info("tally audit completed, every poll is consistent")
	return 0
}
