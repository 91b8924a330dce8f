package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"vidmatch/internal/imageproc"
)

// PostgresStore keeps scans and their matches in PostgreSQL. Template
// signatures are stored as pgvector columns so earlier scans with a
// similar template can be found.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// SimilarScan is a stored scan ranked by template similarity.
type SimilarScan struct {
	ID       uuid.UUID
	Video    string
	Template string
	Matches  int
	Distance float64 // cosine distance, 0 for identical signatures
}

// NewPostgresStore connects to the database at dsn
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// Save stores the scan row and its matches in one transaction.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var sig any
	if len(rec.Signature) == imageproc.SignatureDims {
		sig = pgvector.NewVector(rec.Signature)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO scans
        (id, video, template, threshold, frame_rate, total_frames, workers, signature, elapsed_ms, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgUUID(rec.ID), rec.Video, rec.Template, rec.Threshold, rec.FrameRate,
		rec.TotalFrames, rec.Workers, sig, rec.ElapsedMS, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store scan: %w", err)
	}

	if len(rec.Matches) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"scan_matches"},
			[]string{"scan_id", "frame", "offset_seconds"},
			pgx.CopyFromSlice(len(rec.Matches), func(i int) ([]any, error) {
				m := rec.Matches[i]
				return []any{pgUUID(rec.ID), int32(m.Frame), m.Offset}, nil
			}))
		if err != nil {
			return fmt.Errorf("failed to store matches: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}

	s.logger.Debug("scan stored", "scan", rec.ID.String(), "matches", len(rec.Matches))
	return nil
}

// SimilarScans returns up to limit stored scans whose template signature is
// closest to sig.
func (s *PostgresStore) SimilarScans(ctx context.Context, sig []float32, limit int) ([]SimilarScan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.video, s.template, COUNT(m.frame), s.signature <=> $1 AS distance
        FROM scans s
        LEFT JOIN scan_matches m ON m.scan_id = s.id
        WHERE s.signature IS NOT NULL
        GROUP BY s.id
        ORDER BY distance
        LIMIT $2`,
		pgvector.NewVector(sig), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar scans: %w", err)
	}
	defer rows.Close()

	var results []SimilarScan
	for rows.Next() {
		var (
			r  SimilarScan
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &r.Video, &r.Template, &r.Matches, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		r.ID = uuid.UUID(id.Bytes)
		results = append(results, r)
	}

	return results, rows.Err()
}

// InitSchema creates the database schema if it doesn't exist
func InitSchema(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS scans (
            id UUID PRIMARY KEY,
            video TEXT NOT NULL,
            template TEXT NOT NULL,
            threshold DOUBLE PRECISION NOT NULL,
            frame_rate DOUBLE PRECISION NOT NULL,
            total_frames INTEGER NOT NULL,
            workers INTEGER NOT NULL,
            signature vector(%d),
            elapsed_ms BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );

        CREATE TABLE IF NOT EXISTS scan_matches (
            scan_id UUID REFERENCES scans(id) ON DELETE CASCADE,
            frame INTEGER NOT NULL,
            offset_seconds DOUBLE PRECISION NOT NULL,
            PRIMARY KEY (scan_id, frame)
        );

        CREATE INDEX IF NOT EXISTS idx_scans_video ON scans(video);
    `, imageproc.SignatureDims))
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	return nil
}
