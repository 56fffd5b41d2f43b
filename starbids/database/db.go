package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/logger"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	SSLMode      string `toml:"ssl_mode"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

// New connects to Postgres with a short dial-retry loop so the service
// survives the database coming up slightly after it in orchestrated
// environments.
func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	var conn net.Conn
	var err error
	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, bunDB: newBunDB(cfg)}, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func newBunDB(cfg DBConfig) *bun.DB {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(queryHook{})
	return db
}

// queryHook logs failed statements; successful queries stay quiet.
type queryHook struct{}

func (queryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (queryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil && event.Err != sql.ErrNoRows {
		logger.LogQuery(event.Query, time.Since(event.StartTime), event.Err)
	}
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Close() error {
	db.pool.Close()
	return db.bunDB.Close()
}

// InitSchema creates all tables and indexes. Idempotent; runs on every
// startup.
func (db *DB) InitSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Wallet)(nil),
		(*models.LedgerEntry)(nil),
		(*models.Auction)(nil),
		(*models.Round)(nil),
		(*models.Bid)(nil),
		(*models.Gift)(nil),
	}

	for _, model := range tables {
		if _, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		// Uniqueness the engines rely on.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_rounds_auction_number ON rounds(auction_id, round_number);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_round_user ON bids(round_id, user_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_gifts_auction_number ON gifts(auction_id, gift_number);",
		// Scheduler scans.
		"CREATE INDEX IF NOT EXISTS idx_auctions_upcoming ON auctions(start_at) WHERE status = 'upcoming';",
		"CREATE INDEX IF NOT EXISTS idx_rounds_due ON rounds(end_at) WHERE status IN ('active', 'finalizing');",
		// Hot paths.
		"CREATE INDEX IF NOT EXISTS idx_bids_auction_user_status ON bids(auction_id, user_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_bids_round_status ON bids(round_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, id DESC);",
		"CREATE INDEX IF NOT EXISTS idx_gifts_owner ON gifts(owner_id) WHERE owner_id IS NOT NULL;",
		"CREATE INDEX IF NOT EXISTS idx_gifts_unassigned ON gifts(auction_id, gift_number) WHERE owner_id IS NULL;",
	}
	for _, idx := range indexes {
		if _, err := db.bunDB.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	slog.Info("Database schema initialized",
		slog.String("type", "db"),
		slog.Int("tables", len(tables)))
	return nil
}
