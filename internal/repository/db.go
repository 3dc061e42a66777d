package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Config holds the Postgres connection parameters, grounded on the
// teacher's database.Config.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DB wraps the pgx connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB opens a connection pool and verifies it with a ping, per the
// teacher's database.NewDB pool-sizing choices.
func NewDB(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: parse config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("repository: create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("repository: ping: %w", err)
	}

	logger.Info().Str("database", cfg.Database).Msg("connected to postgres")
	return &DB{Pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("postgres connection closed")
	}
}

// schema is the core table set backing spec §6's persisted-state list.
// Migrations beyond this initial schema remain a non-goal per §1.
const schema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	source TEXT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	open DOUBLE PRECISION NOT NULL,
	high DOUBLE PRECISION NOT NULL,
	low DOUBLE PRECISION NOT NULL,
	close DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (symbol, timeframe, source, ts)
);

CREATE TABLE IF NOT EXISTS fetch_checkpoints (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	source TEXT NOT NULL,
	last_window_end TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (symbol, timeframe, source)
);

CREATE TABLE IF NOT EXISTS sync_state (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	source TEXT NOT NULL,
	last_sync_at TIMESTAMPTZ,
	oldest_ts TIMESTAMPTZ,
	newest_ts TIMESTAMPTZ,
	candle_count INTEGER NOT NULL DEFAULT 0,
	is_syncing BOOLEAN NOT NULL DEFAULT FALSE,
	last_error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (symbol, timeframe, source)
);

CREATE TABLE IF NOT EXISTS strategy_rules (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	entry_type TEXT NOT NULL,
	definition JSONB NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	trade_count INTEGER NOT NULL DEFAULT 0,
	win_rate DOUBLE PRECISION,
	avg_r_multiple DOUBLE PRECISION,
	enabled BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	strategy_rule_id TEXT,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	entry_time TIMESTAMPTZ NOT NULL,
	quantity DOUBLE PRECISION NOT NULL,
	stop DOUBLE PRECISION NOT NULL,
	tp_levels JSONB NOT NULL DEFAULT '[]',
	status TEXT NOT NULL,
	exit_price DOUBLE PRECISION,
	exit_time TIMESTAMPTZ,
	exit_reason TEXT NOT NULL DEFAULT '',
	realized_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
	r_multiple DOUBLE PRECISION NOT NULL DEFAULT 0,
	reasoning TEXT NOT NULL DEFAULT '',
	partial_exits_pct DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trade_decisions (
	id TEXT PRIMARY KEY,
	signal_id TEXT NOT NULL,
	trade_id TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL,
	decision TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	decided_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS learning_journal (
	id TEXT PRIMARY KEY,
	trade_id TEXT NOT NULL,
	setup_validity TEXT NOT NULL,
	performance_rating INTEGER NOT NULL,
	what_worked JSONB NOT NULL DEFAULT '[]',
	what_didnt JSONB NOT NULL DEFAULT '[]',
	lessons JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS learning_insights (
	context_description TEXT PRIMARY KEY,
	sample_size INTEGER NOT NULL,
	win_rate DOUBLE PRECISION NOT NULL,
	baseline_win_rate DOUBLE PRECISION NOT NULL,
	effect_size DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	active BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS zones (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	top DOUBLE PRECISION NOT NULL,
	bottom DOUBLE PRECISION NOT NULL,
	zone_type TEXT NOT NULL,
	strength_class TEXT NOT NULL,
	touches INTEGER NOT NULL DEFAULT 0,
	bounces INTEGER NOT NULL DEFAULT 0,
	first_touch INTEGER NOT NULL DEFAULT 0,
	last_touch INTEGER NOT NULL DEFAULT 0,
	avg_volume DOUBLE PRECISION NOT NULL DEFAULT 0,
	broken BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (symbol, timeframe, top, bottom)
);

CREATE TABLE IF NOT EXISTS market_structure (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	candle_index INTEGER NOT NULL,
	classification TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (symbol, timeframe, candle_index)
);
`

// RunMigrations creates the core schema, idempotently.
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running repository migrations")
	_, err := db.Pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("repository: run migrations: %w", err)
	}
	return nil
}
