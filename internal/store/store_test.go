package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRunRegistryRoundTrip exercises the full registry lifecycle against a
// real Postgres.
func TestRunRegistryRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing.
	// Wrapped to recover from panics inside testcontainers (e.g. socket not
	// found).
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("goldendavid_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer pgContainer.Terminate(ctx)

	connStr, _ := pgContainer.ConnectionString(ctx, "sslmode=disable")
	db, err := New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close(ctx)

	seed := int64(123)
	extID, err := db.RecordExtraction(ctx, "/tmp/input.png", 520, 260, 48211, 95, 2, &seed, "/tmp/out/precomputed_data.json")
	if err != nil {
		t.Fatalf("RecordExtraction failed: %v", err)
	}
	if extID == 0 {
		t.Error("expected a non-zero extraction id")
	}

	capID, err := db.RecordCapture(ctx, "/tmp/out/effect.js", 300, 30, "encoded", "/tmp/out/david_effect.webm", "/tmp/out/embed.html")
	if err != nil {
		t.Fatalf("RecordCapture failed: %v", err)
	}
	// A degraded session stores empty artifact paths as NULLs.
	if _, err := db.RecordCapture(ctx, "/tmp/out/effect.js", 12, 30, "raw_only", "", ""); err != nil {
		t.Fatalf("RecordCapture (raw_only) failed: %v", err)
	}

	extractions, err := db.ListExtractions(ctx, 10)
	if err != nil {
		t.Fatalf("ListExtractions failed: %v", err)
	}
	if len(extractions) != 1 {
		t.Fatalf("expected 1 extraction run, got %d", len(extractions))
	}
	got := extractions[0]
	if got.ID != extID || got.Width != 520 || got.Height != 260 || got.PointCount != 48211 {
		t.Errorf("mismatch in persisted extraction: %+v", got)
	}

	captures, err := db.ListCaptures(ctx, 10)
	if err != nil {
		t.Fatalf("ListCaptures failed: %v", err)
	}
	if len(captures) != 2 {
		t.Fatalf("expected 2 capture sessions, got %d", len(captures))
	}
	var encoded, rawOnly *CaptureSession
	for i := range captures {
		switch captures[i].Status {
		case "encoded":
			encoded = &captures[i]
		case "raw_only":
			rawOnly = &captures[i]
		}
	}
	if encoded == nil || encoded.ID != capID || encoded.VideoPath != "/tmp/out/david_effect.webm" {
		t.Errorf("mismatch in encoded session: %+v", encoded)
	}
	if rawOnly == nil || rawOnly.VideoPath != "" || rawOnly.FrameCount != 12 {
		t.Errorf("mismatch in raw_only session: %+v", rawOnly)
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
