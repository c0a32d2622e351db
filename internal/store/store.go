// Package store is an optional Postgres registry of extraction and capture
// runs. The pipeline's artifacts are file-based; the registry only records
// what was produced, when, and with what parameters.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection for the run registry.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// initSchema creates the registry tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS extraction_runs (
			id BIGSERIAL PRIMARY KEY,
			image_path TEXT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			point_count INT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			sample_rate INT NOT NULL,
			seed BIGINT,
			artifact_path TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS capture_sessions (
			id BIGSERIAL PRIMARY KEY,
			effect_js TEXT NOT NULL,
			frame_count INT NOT NULL,
			fps INT NOT NULL,
			status TEXT NOT NULL,
			video_path TEXT,
			embed_path TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RecordExtraction registers one extraction run and returns its ID.
func (s *Store) RecordExtraction(ctx context.Context, imagePath string, w, h, pointCount int, threshold float64, sampleRate int, seed *int64, artifactPath string) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx, `
		INSERT INTO extraction_runs (image_path, width, height, point_count, threshold, sample_rate, seed, artifact_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, imagePath, w, h, pointCount, threshold, sampleRate, seed, artifactPath).Scan(&id)
	return id, err
}

// RecordCapture registers one capture session. videoPath and embedPath are
// empty when the session degraded to a raw frame sequence.
func (s *Store) RecordCapture(ctx context.Context, effectJS string, frameCount, fps int, status, videoPath, embedPath string) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx, `
		INSERT INTO capture_sessions (effect_js, frame_count, fps, status, video_path, embed_path)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id
	`, effectJS, frameCount, fps, status, videoPath, embedPath).Scan(&id)
	return id, err
}

// ExtractionRun is one row of the extraction_runs table.
type ExtractionRun struct {
	ID         int64
	ImagePath  string
	Width      int
	Height     int
	PointCount int
	CreatedAt  time.Time
}

// CaptureSession is one row of the capture_sessions table.
type CaptureSession struct {
	ID         int64
	EffectJS   string
	FrameCount int
	FPS        int
	Status     string
	VideoPath  string
	CreatedAt  time.Time
}

// ListExtractions returns the most recent extraction runs, newest first.
func (s *Store) ListExtractions(ctx context.Context, limit int) ([]ExtractionRun, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, image_path, width, height, point_count, created_at
		FROM extraction_runs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ExtractionRun
	for rows.Next() {
		var r ExtractionRun
		if err := rows.Scan(&r.ID, &r.ImagePath, &r.Width, &r.Height, &r.PointCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListCaptures returns the most recent capture sessions, newest first.
func (s *Store) ListCaptures(ctx context.Context, limit int) ([]CaptureSession, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, effect_js, frame_count, fps, status, COALESCE(video_path, ''), created_at
		FROM capture_sessions ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []CaptureSession
	for rows.Next() {
		var c CaptureSession
		if err := rows.Scan(&c.ID, &c.EffectJS, &c.FrameCount, &c.FPS, &c.Status, &c.VideoPath, &c.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, c)
	}
	return sessions, rows.Err()
}

// Reset drops the registry tables to clear the database state.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS extraction_runs CASCADE;
		DROP TABLE IF EXISTS capture_sessions CASCADE;
	`)
	return err
}
