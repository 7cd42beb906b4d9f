package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"voicespec/pkg/logger"
	"voicespec/pkg/model"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PostgresStorage records pipeline runs and their terminal outcomes. The
// pipeline only writes here; nothing is read back into a run.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects, verifies the connection and applies pending
// migrations.
func NewPostgresStorage(databaseURL string) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")

	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations completed successfully")

	return &PostgresStorage{pool: pool}, nil
}

func runMigrations(databaseURL string) error {
	migrationsPath, err := filepath.Abs("migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}
	migrationsURL := fmt.Sprintf("file://%s", migrationsPath)

	logger.Info("Running migrations", zap.String("path", migrationsURL))

	connConfig, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Migrations applied successfully")
	}

	return nil
}

// Close closes the database connection pool
func (s *PostgresStorage) Close() {
	s.pool.Close()
}

// CreateRun inserts a new pipeline run record
func (s *PostgresStorage) CreateRun(ctx context.Context, run *model.Run) error {
	query := `
		INSERT INTO runs (
			id, status, audio_key, job_name, project_name, artifact_path,
			transcript_chars, error_kind, error_text, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := s.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.AudioKey,
		run.JobName,
		run.ProjectName,
		run.ArtifactPath,
		run.TranscriptChars,
		run.ErrorKind,
		run.ErrorText,
		run.CreatedAt,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// UpdateRun updates a full run record
func (s *PostgresStorage) UpdateRun(ctx context.Context, run *model.Run) error {
	query := `
		UPDATE runs
		SET status = $2, audio_key = $3, job_name = $4, project_name = $5,
		    artifact_path = $6, transcript_chars = $7, error_kind = $8,
		    error_text = $9, updated_at = $10
		WHERE id = $1`

	result, err := s.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.AudioKey,
		run.JobName,
		run.ProjectName,
		run.ArtifactPath,
		run.TranscriptChars,
		run.ErrorKind,
		run.ErrorText,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found")
	}

	return nil
}

// GetRunByID retrieves a run by its ID
func (s *PostgresStorage) GetRunByID(ctx context.Context, id string) (*model.Run, error) {
	query := `
		SELECT id, status, audio_key, job_name, project_name, artifact_path,
		       transcript_chars, error_kind, error_text, created_at, updated_at
		FROM runs
		WHERE id = $1`

	var run model.Run
	row := s.pool.QueryRow(ctx, query, id)

	err := row.Scan(
		&run.ID,
		&run.Status,
		&run.AudioKey,
		&run.JobName,
		&run.ProjectName,
		&run.ArtifactPath,
		&run.TranscriptChars,
		&run.ErrorKind,
		&run.ErrorText,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("run not found")
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListRecentRuns retrieves the most recent runs, newest first
func (s *PostgresStorage) ListRecentRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	query := `
		SELECT id, status, audio_key, job_name, project_name, artifact_path,
		       transcript_chars, error_kind, error_text, created_at, updated_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		var run model.Run
		err := rows.Scan(
			&run.ID,
			&run.Status,
			&run.AudioKey,
			&run.JobName,
			&run.ProjectName,
			&run.ArtifactPath,
			&run.TranscriptChars,
			&run.ErrorKind,
			&run.ErrorText,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
