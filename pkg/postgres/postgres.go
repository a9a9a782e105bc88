// Package postgres opens the bun handle shared by the catalog and lead stores.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	PingTimeout  time.Duration `envconfig:"PING_TIMEOUT" split_words:"true" default:"5s"`
	LogQueries   bool          `envconfig:"LOG_QUERIES" split_words:"true" default:"false"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("postgres dsn is required")
	}
	return nil
}

// Open connects and pings the database.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.LogQueries {
		db.AddQueryHook(QueryLogger{})
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return db, nil
}

// QueryLogger writes every bun query to the global zerolog logger at debug level.
type QueryLogger struct{}

var _ bun.QueryHook = QueryLogger{}

func (QueryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (QueryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	evt := log.Debug()
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		evt = log.Warn().Err(event.Err)
	}
	evt.
		Str("query", event.Query).
		Dur("elapsed", time.Since(event.StartTime)).
		Msg("postgres query")
}
