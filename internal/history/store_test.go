package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", FileName), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC)
	run := &Run{
		ID:          "run-1",
		CreatedAt:   at,
		FileA:       "a.csv",
		FileB:       "b.csv",
		MatchColumn: "Image_name",
		Threshold:   0.8,
		TotalA:      10,
		TotalB:      9,
		Matched:     8,
		MatchRate:   80,
		Primary:     "sensorCCT",
		Fields:      []string{"sensorCCT", "Lux"},
		Buckets:     map[string]int{"large": 1, "medium": 2, "small": 3, "no_change": 2},
		Skipped:     1,
	}
	if err := s.Record(ctx, run); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(at) || got.Matched != 8 || got.Primary != "sensorCCT" || got.Skipped != 1 {
		t.Fatalf("got %+v", got)
	}
	if len(got.Fields) != 2 || got.Fields[1] != "Lux" || got.Buckets["small"] != 3 {
		t.Fatalf("json columns: %+v", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRecordRejectsMissingID(t *testing.T) {
	s := openTemp(t)
	if err := s.Record(context.Background(), &Run{}); err == nil {
		t.Fatal("expected error for empty id")
	}
	if err := s.Record(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil run")
	}
}

func TestRecentOrderingAndLimit(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		r := &Run{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour), MatchColumn: "Image_name"}
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}
	runs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Fatalf("recent = %v", ids(runs))
	}
	all, err := s.Recent(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %v, %v", ids(all), err)
	}
	if all[0].Fields != nil || all[0].Buckets != nil {
		t.Fatalf("empty json columns should decode to nil: %+v", all[0])
	}

	n, err := s.Prune(ctx, base.Add(90*time.Minute))
	if err != nil || n != 2 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
	left, _ := s.Recent(ctx, 0)
	if len(left) != 1 || left[0].ID != "new" {
		t.Fatalf("after prune = %v", ids(left))
	}
}

func TestReopenKeepsRunsAndSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	ctx := context.Background()
	s, err := Open(ctx, path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Record(ctx, &Run{ID: "keep", MatchColumn: "Image_name"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = s.Close()

	s2, err := Open(ctx, path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(ctx, "keep"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func ids(runs []*Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
