package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/vinscan/internal/common"
)

type Config struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom copies the database section of the application config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		Driver:           c.Driver,
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// DB bundles the ent SQL driver with the handles needed to close it.
type DB struct {
	dialect string
	drv     *entsql.Driver
	sqlDB   *sql.DB
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// Open connects to Postgres through a pgx pool or to SQLite through modernc, and
// wraps the connection for ent.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case common.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case common.DriverSQLite:
		return openSQLite(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidInput, cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", cfg.Driver)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, common.WrapError(err, "parse dsn")
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "vinscan"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.WrapError(err, "connect")
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{
		dialect: dialect.Postgres,
		drv:     entsql.OpenDB(dialect.Postgres, db),
		sqlDB:   db,
		pool:    pool,
		logger:  logger,
	}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("opening sqlite database", "dsn", dsn)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite")
	}
	// one connection: sqlite serializes writers and ":memory:" is per-connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	return &DB{
		dialect: dialect.SQLite,
		drv:     entsql.OpenDB(dialect.SQLite, db),
		sqlDB:   db,
		logger:  logger,
	}, nil
}

// Dialect reports the ent dialect name in use.
func (db *DB) Dialect() string { return db.dialect }

// Close closes the database connections gracefully
func (db *DB) Close() {
	db.logger.Info("closing database connections")
	if err := db.drv.Close(); err != nil {
		db.logger.Error("failed to close database driver", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	db.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", common.ErrDatabase, err)
	}
	db.logger.Debug("database ping successful")
	return nil
}

// Migrate creates the audit-log table and its index when missing.
func (db *DB) Migrate(ctx context.Context) error {
	b := entsql.Dialect(db.dialect)
	timeType := "timestamptz"
	floatType := "double precision"
	if db.dialect == dialect.SQLite {
		timeType = "DATETIME"
		floatType = "REAL"
	}

	table, args := b.CreateTable(extractionsTable).IfNotExists().
		Columns(
			entsql.Column("id").Type("varchar(36)").Attr("NOT NULL"),
			entsql.Column("created_at").Type(timeType).Attr("NOT NULL"),
			entsql.Column("source").Type("text").Attr("NOT NULL"),
			entsql.Column("image_sha256").Type("varchar(64)").Attr("NOT NULL"),
			entsql.Column("engine").Type("varchar(32)").Attr("NOT NULL"),
			entsql.Column("status").Type("varchar(16)").Attr("NOT NULL"),
			entsql.Column("vin").Type("varchar(17)").Attr("NOT NULL"),
			entsql.Column("confidence").Type(floatType).Attr("NOT NULL"),
			entsql.Column("manufacturer").Type("text").Attr("NOT NULL"),
			entsql.Column("strategy").Type("varchar(16)").Attr("NOT NULL"),
			entsql.Column("check_digit").Type("varchar(16)").Attr("NOT NULL"),
			entsql.Column("candidate_count").Type("bigint").Attr("NOT NULL"),
			entsql.Column("failure_message").Type("text").Attr("NOT NULL"),
			entsql.Column("raw_text").Type("text").Attr("NOT NULL"),
			entsql.Column("duration_ms").Type("bigint").Attr("NOT NULL"),
			entsql.Column("diagnostics").Type("text").Attr("NOT NULL"),
		).
		PrimaryKey("id").
		Query()
	if err := db.drv.Exec(ctx, table, args, nil); err != nil {
		return fmt.Errorf("%w: create %s: %v", common.ErrDatabase, extractionsTable, err)
	}

	index, args := b.CreateIndex(extractionsTable+"_created_at").IfNotExists().
		Table(extractionsTable).
		Column("created_at").
		Query()
	if err := db.drv.Exec(ctx, index, args, nil); err != nil {
		return fmt.Errorf("%w: create index: %v", common.ErrDatabase, err)
	}
	db.logger.Debug("migration complete", "table", extractionsTable)
	return nil
}
