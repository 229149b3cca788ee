package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestJournalRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	recs := []RunRecord{
		{Kind: "drain-host", Subject: "H1 -> H2", Processed: 4, Moved: 4, Status: "succeeded", StartedAt: now, FinishedAt: now.Add(time.Minute)},
		{Kind: "rebalance-cluster", Subject: "prod", Processed: 9, Moved: 3, Failures: 1, Status: "partial", StartedAt: now.Add(time.Hour), FinishedAt: now.Add(time.Hour + time.Minute)},
	}
	for _, rec := range recs {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	// Most recent first.
	if got[0].Kind != "rebalance-cluster" || got[0].Subject != "prod" {
		t.Errorf("unexpected first run %+v", got[0])
	}
	if got[1].Moved != 4 || got[1].Status != "succeeded" {
		t.Errorf("unexpected second run %+v", got[1])
	}
	if !got[0].StartedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("started_at did not round-trip, got %v", got[0].StartedAt)
	}
}

func TestJournalRecentLimit(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		rec := RunRecord{Kind: "drain-host", Subject: "H1 -> H2", Status: "succeeded", StartedAt: time.Now(), FinishedAt: time.Now()}
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 runs with limit, got %d", len(got))
	}
}
