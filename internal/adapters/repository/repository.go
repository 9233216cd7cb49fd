// Package repository opens the configured store and hands out its ports.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type Repositories struct {
	DB      *sql.DB
	Polls   ports.PollRepository
	Votes   ports.VoteRepository
	Tallies ports.TallyRepository
}

func Open(ctx context.Context, cfg config.Config) (*Repositories, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			DB:      db,
			Polls:   sqlite.NewPollRepository(db),
			Votes:   sqlite.NewVoteRepository(db),
			Tallies: sqlite.NewTallyRepository(db),
		}, nil

	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.Postgres.ConnString())
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres db: %w", err)
		}
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &Repositories{
			DB:      db,
			Polls:   postgres.NewPollRepository(db),
			Votes:   postgres.NewVoteRepository(db),
			Tallies: postgres.NewTallyRepository(db),
		}, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}
