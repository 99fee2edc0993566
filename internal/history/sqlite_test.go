package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "polls.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return s
}

func TestSQLiteStore_AppendAndList(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	if err := s.Append(ctx, record("r1", base)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, record("r2", base.Add(50*time.Millisecond))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != "r2" || records[1].ID != "r1" {
		t.Errorf("Expected most-recent-first order, got [%s %s]", records[0].ID, records[1].ID)
	}

	got := records[1]
	if got.Question != "Q r1" || got.TotalVotes != 1 || !got.ViewableByPresenter {
		t.Errorf("Record fields mismatch: %+v", got)
	}
	if len(got.Options) != 2 || got.Options[0] != "A" {
		t.Errorf("Options not round-tripped: %v", got.Options)
	}
	if len(got.Results) != 2 || got.Results[0].Votes != 1 {
		t.Errorf("Results not round-tripped: %v", got.Results)
	}
	if !got.CompletedAt.Equal(base) {
		t.Errorf("CompletedAt mismatch: want %v, got %v", base, got.CompletedAt)
	}
}

func TestSQLiteStore_EmptyList(t *testing.T) {
	s := setupSQLite(t)
	records, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty history, got %d", len(records))
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := setupSQLite(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
