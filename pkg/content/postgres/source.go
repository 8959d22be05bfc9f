// Package postgres provides a PostgreSQL-backed content source.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ChangeChannel is the LISTEN channel the schema notifies on, payload = content type
const ChangeChannel = "content_changed"

// Config holds configuration for the content database
type Config struct {
	ConnectionString string
	MaxConnections   int32
	ConnectTimeout   time.Duration
}

// Source reads content records from PostgreSQL
type Source struct {
	pool   *pgxpool.Pool
	config *Config
}

// NewSource connects to the database and verifies connectivity
func NewSource(ctx context.Context, config *Config) (*Source, error) {
	if config == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	// Set defaults
	if config.MaxConnections == 0 {
		config.MaxConnections = 5
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = config.MaxConnections
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	timeoutCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(timeoutCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Source{pool: pool, config: config}, nil
}

// Close closes the connection pool
func (s *Source) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies all pending schema migrations from the embedded migrations directory
func (s *Source) Migrate(ctx context.Context) error {
	return MigrateToLatest(ctx, s.config.ConnectionString)
}

// MigrateToLatest applies all pending migrations against connStr
func MigrateToLatest(ctx context.Context, connStr string) error {
	migrationDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer migrationDB.Close()

	if err := migrationDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database for migration: %w", err)
	}

	driver, err := migratepg.WithInstance(migrationDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

const selectColumns = `id, type, title, description, content, tags, category, status, priority, no_index, created_at, updated_at`

// Load returns all records of one type
func (s *Source) Load(ctx context.Context, t content.Type) ([]content.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM content_records WHERE type = $1 ORDER BY id`, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", t, err)
	}
	return collectRecords(rows)
}

// LoadAll returns records of every type
func (s *Source) LoadAll(ctx context.Context) ([]content.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM content_records ORDER BY type, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query content records: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]content.Record, error) {
	defer rows.Close()

	records := []content.Record{}
	for rows.Next() {
		var (
			r         content.Record
			typ       string
			status    string
			body      *string
			noIndex   bool
			createdAt time.Time
			updatedAt *time.Time
		)
		if err := rows.Scan(&r.ID, &typ, &r.Title, &r.Description, &body, &r.Tags,
			&r.Category, &status, &r.Priority, &noIndex, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content record: %w", err)
		}

		r.Type = content.Type(typ)
		r.Status = content.Status(status)
		if body != nil {
			r.Content = *body
		}
		if noIndex {
			r.SEO = &content.SEO{NoIndex: true}
		}
		r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		if updatedAt != nil {
			r.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read content records: %w", err)
	}
	return records, nil
}

// Upsert inserts or replaces records in a single transaction
func (s *Source) Upsert(ctx context.Context, records []content.Record) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		createdAt, err := content.ParseTimestamp(r.CreatedAt)
		if err != nil {
			createdAt = time.Now()
		}
		var updatedAt *time.Time
		if ts, err := content.ParseTimestamp(r.UpdatedAt); err == nil {
			updatedAt = &ts
		}
		var body *string
		if r.Content != "" {
			body = &r.Content
		}
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}

		batch.Queue(`INSERT INTO content_records
			(id, type, title, description, content, tags, category, status, priority, no_index, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (type, id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				content = EXCLUDED.content,
				tags = EXCLUDED.tags,
				category = EXCLUDED.category,
				status = EXCLUDED.status,
				priority = EXCLUDED.priority,
				no_index = EXCLUDED.no_index,
				created_at = EXCLUDED.created_at,
				updated_at = EXCLUDED.updated_at`,
			r.ID, string(r.Type), r.Title, r.Description, body, tags, r.Category,
			string(r.Status), r.Priority, r.NoIndex(), createdAt, updatedAt)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert content records: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit content records: %w", err)
	}
	return nil
}

// Delete removes one record
func (s *Source) Delete(ctx context.Context, t content.Type, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM content_records WHERE type = $1 AND id = $2`, string(t), id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", t, id, err)
	}
	return nil
}

// Listen blocks delivering change notifications until ctx is done.
// Each notification carries the content type whose rows changed.
func (s *Source) Listen(ctx context.Context, handler content.ChangeHandler) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ChangeChannel, err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed waiting for notification: %w", err)
		}

		t, err := content.ParseType(notification.Payload)
		if err != nil {
			continue
		}
		handler(ctx, t)
	}
}
