package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"algo-transfers/internal/config"
	"algo-transfers/internal/domain"
)

// Store is the configured TransactionStore together with the resources it owns.
type Store struct {
	domain.TransactionStore

	driver string
	ping   func(ctx context.Context) error
	close  func() error
}

// Open builds the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := sql.Open("postgres", cfg.GetDBConnectionString())
		if err != nil {
			return nil, err
		}

		// Configure connection pool for better performance
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("Successfully connected to database")

		if cfg.AutoMigrate {
			if err := Migrate(ctx, db, logger); err != nil {
				db.Close()
				return nil, err
			}
		}
		return NewSQLStore(db, logger), nil

	case config.StoreDriverBolt:
		bs, err := NewBoltStore(cfg.BoltPath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened bolt store", "path", cfg.BoltPath)
		return &Store{
			TransactionStore: bs,
			driver:           config.StoreDriverBolt,
			ping:             func(context.Context) error { return nil },
			close:            bs.Close,
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store: records are lost on restart")
		return NewInMemoryStore(logger), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// NewSQLStore wraps an open PostgreSQL pool.
func NewSQLStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		TransactionStore: NewTransactionRepository(db, logger),
		driver:           config.StoreDriverPostgres,
		ping:             db.PingContext,
		close:            db.Close,
	}
}

func NewInMemoryStore(logger *slog.Logger) *Store {
	return &Store{
		TransactionStore: NewMemoryStore(logger),
		driver:           config.StoreDriverMemory,
		ping:             func(context.Context) error { return nil },
		close:            func() error { return nil },
	}
}

func (s *Store) Driver() string {
	return s.driver
}

// Ping reports whether the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Store) Close() error {
	return s.close()
}
