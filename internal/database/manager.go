package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"ecomission/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Manager owns the connection pool and records query metrics
type Manager struct {
	db      *sql.DB
	logger  *zap.Logger
	metrics *Metrics
	config  *config.DatabaseConfig
	mu      sync.RWMutex
}

// HealthStatus is the result of a connectivity probe
type HealthStatus struct {
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency"`
	OpenConns int           `json:"open_connections"`
	Error     string        `json:"error,omitempty"`
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// NewManager opens the pool and waits for the database to answer a ping
func NewManager(cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	configureConnectionPool(db, cfg)

	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	err = backoff.RetryNotify(
		ping,
		backoff.WithMaxRetries(b, uint64(max(cfg.ConnectRetries, 0))),
		func(err error, d time.Duration) {
			logger.Warn("Database ping failed, retrying",
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	manager := &Manager{
		db:      db,
		logger:  logger,
		config:  cfg,
		metrics: NewMetrics(cfg.SlowQueryThreshold),
	}

	logger.Info("Database manager initialized",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)

	return manager, nil
}

func configureConnectionPool(db *sql.DB, cfg *config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// DB returns the underlying database connection
func (m *Manager) DB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Migrate runs database migrations using a separate connection
func (m *Manager) Migrate(migrationsPath string) error {
	m.logger.Info("Starting database migrations", zap.String("path", migrationsPath))

	// The migrator closes its connection on Close, so it must not share the pool
	migrationDB, err := sql.Open("postgres", m.config.URL)
	if err != nil {
		return fmt.Errorf("failed to create migration connection: %w", err)
	}
	defer migrationDB.Close()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	currentVersion, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		m.logger.Warn("Database is in dirty state", zap.Uint("version", currentVersion))
		return fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	m.logger.Info("Migrations completed successfully",
		zap.Uint("from_version", currentVersion),
		zap.Uint("to_version", newVersion),
	)
	return nil
}

// ExecContext executes a query with context and metrics
func (m *Manager) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := m.db.ExecContext(ctx, query, args...)
	m.observe("exec", query, start, err)
	return result, err
}

// QueryContext executes a query with context and metrics
func (m *Manager) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := m.db.QueryContext(ctx, query, args...)
	m.observe("query", query, start, err)
	return rows, err
}

// QueryRowContext executes a single-row query with context and metrics
func (m *Manager) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := m.db.QueryRowContext(ctx, query, args...)
	m.observe("query_row", query, start, row.Err())
	return row
}

// BeginTx starts a new transaction with context
func (m *Manager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := m.db.BeginTx(ctx, opts)
	m.metrics.RecordQuery("begin_tx", time.Since(start), err)
	if err != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(err))
	}
	return tx, err
}

func (m *Manager) observe(queryType, query string, start time.Time, err error) {
	duration := time.Since(start)
	m.metrics.RecordQuery(queryType, duration, err)

	if duration > m.metrics.SlowQueryThreshold() {
		m.logger.Warn("Slow query detected",
			zap.String("type", queryType),
			zap.Duration("duration", duration),
			zap.String("query", truncateQuery(query)),
		)
	}

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		m.logger.Error("Query execution failed",
			zap.String("type", queryType),
			zap.Error(err),
			zap.String("query", truncateQuery(query)),
		)
	}
}

// Health pings the database and reports pool usage
func (m *Manager) Health(ctx context.Context) *HealthStatus {
	start := time.Now()
	err := m.db.PingContext(ctx)
	status := &HealthStatus{
		Status:    StatusHealthy,
		Latency:   time.Since(start),
		OpenConns: m.db.Stats().OpenConnections,
	}
	if err != nil {
		status.Status = StatusUnhealthy
		status.Error = err.Error()
	}
	return status
}

// Metrics returns current database metrics
func (m *Manager) Metrics() *MetricsSnapshot {
	return m.metrics.Snapshot(m.db.Stats())
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		m.logger.Info("Closing database connection")
		return m.db.Close()
	}
	return nil
}

// truncateQuery truncates long queries for logging
func truncateQuery(query string) string {
	const maxLength = 200
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength] + "..."
}
