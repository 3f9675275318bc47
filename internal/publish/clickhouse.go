package publish

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/golang-migrate/migrate/v4"
	chmigrate "github.com/golang-migrate/migrate/v4/database/clickhouse"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	resultsTable    = "perf_results"
	migrationsTable = "perf_schema_migrations"
)

const insertResultQuery = `INSERT INTO perf_results (
	run_id, label, folder, recorded_at, repo, git_ref, connections, duration_seconds,
	platform, arch, execution_time_ms, latency_average_ms, requests_per_second, errors
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// resultRow is one perf_results row.
type resultRow struct {
	RunID             string
	Label             string
	Folder            string
	RecordedAt        time.Time
	Repo              string
	GitRef            string
	Connections       uint32
	DurationSeconds   uint32
	Platform          string
	Arch              string
	ExecutionTimeMs   float64
	LatencyAverageMs  *float64
	RequestsPerSecond *float64
	Errors            *int64
}

func newResultRow(a Artifact) resultRow {
	rec := a.Record

	row := resultRow{
		RunID:           a.RunID,
		Label:           a.Label,
		Folder:          a.Folder,
		RecordedAt:      time.UnixMilli(rec.Timestamp).UTC(),
		Repo:            rec.RunMetadata.Repo,
		GitRef:          rec.RunMetadata.GitRef,
		Connections:     uint32(max(rec.RunMetadata.ToolSettings.Connections, 0)), //nolint:gosec // G115: clamped to non-negative
		DurationSeconds: uint32(max(rec.RunMetadata.ToolSettings.Duration, 0)),    //nolint:gosec // G115: clamped to non-negative
		Platform:        rec.ServerMetadata.Platform,
		Arch:            rec.ServerMetadata.Arch,
		ExecutionTimeMs: rec.ExecutionTime(),
	}

	if c := rec.ClientResults; c != nil {
		if c.Latency != nil {
			latency := c.Latency.AverageMs
			row.LatencyAverageMs = &latency
		}

		row.RequestsPerSecond = c.RequestsPerSecond
		row.Errors = c.Errors
	}

	return row
}

func (r resultRow) args() []any {
	return []any{
		r.RunID, r.Label, r.Folder, r.RecordedAt, r.Repo, r.GitRef, r.Connections, r.DurationSeconds,
		r.Platform, r.Arch, r.ExecutionTimeMs, r.LatencyAverageMs, r.RequestsPerSecond, r.Errors,
	}
}

// ClickHouse keeps a history of every record in the perf_results table.
type ClickHouse struct {
	db       *sql.DB
	database string
	log      logrus.FieldLogger
}

var (
	_ Publisher = (*ClickHouse)(nil)
	_ Closer    = (*ClickHouse)(nil)
)

// NewClickHouse connects to the DSN, checks the server against guard and
// migrates the results table.
func NewClickHouse(ctx context.Context, log logrus.FieldLogger, dsn string, guard *HostGuard) (*ClickHouse, error) {
	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing clickhouse dsn: %w", err)
	}

	options.DialTimeout = 30 * time.Second
	options.Settings = clickhouse.Settings{"max_execution_time": 60}

	database := options.Auth.Database
	if database == "" {
		database = "default"
	}

	db := clickhouse.OpenDB(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if guard != nil {
		if err := guard.Check(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	ch := &ClickHouse{
		db:       db,
		database: database,
		log:      log.WithField("component", "clickhouse_publisher"),
	}

	if err := ch.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return ch, nil
}

// Name implements Publisher.
func (c *ClickHouse) Name() string { return "clickhouse" }

// Publish inserts one row for the artifact.
func (c *ClickHouse) Publish(ctx context.Context, a Artifact) error {
	if _, err := c.db.ExecContext(ctx, insertResultQuery, newResultRow(a).args()...); err != nil {
		return fmt.Errorf("inserting into %s: %w", resultsTable, err)
	}

	return nil
}

// Close closes the connection pool.
func (c *ClickHouse) Close() error {
	return c.db.Close()
}

func (c *ClickHouse) migrate(ctx context.Context) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating source driver: %w", err)
	}

	dbDriver, err := chmigrate.WithInstance(c.db, &chmigrate.Config{
		DatabaseName:          c.database,
		MigrationsTable:       migrationsTable,
		MultiStatementEnabled: true,
	})
	if err != nil {
		return fmt.Errorf("creating clickhouse driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, c.database, dbDriver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	c.log.WithField("database", c.database).Debug("running migrations")

	done := make(chan error, 1)
	go func() {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			done <- fmt.Errorf("running migrations: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("migration canceled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}
