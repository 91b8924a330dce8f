package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"vidmatch/internal/imageproc"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("VIDMATCH_TEST_DSN")
	if dsn == "" {
		t.Skip("VIDMATCH_TEST_DSN not set")
	}
	ctx := context.Background()

	if err := InitSchema(ctx, dsn); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	store, err := NewPostgresStore(ctx, dsn, slog.Default())
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer store.Close()

	sig := make([]float32, imageproc.SignatureDims)
	sig[0], sig[1] = 1, -1
	rec := NewRecord(sampleResult(), "logo.png", sig)
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	similar, err := store.SimilarScans(ctx, sig, 100)
	if err != nil {
		t.Fatalf("SimilarScans() error = %v", err)
	}
	for _, s := range similar {
		if s.ID == rec.ID {
			if s.Matches != 2 {
				t.Errorf("stored scan has %d matches, want 2", s.Matches)
			}
			return
		}
	}
	t.Errorf("saved scan %s not returned by SimilarScans", rec.ID)
}
