package archive

import (
	"context"
	"testing"
)

func fillRange(t *testing.T, store *Store, start, end uint64, skip map[uint64]bool) {
	t.Helper()
	for h := start; h <= end; h++ {
		if skip[h] {
			continue
		}
		if err := store.Write(h, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanCompleteRange(t *testing.T) {
	store := NewStore(t.TempDir())
	fillRange(t, store, 1, 1500, nil)

	report, err := NewScanner(store, "testnet").Scan(context.Background(), 1, 1500)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if report.Expected != 1500 {
		t.Errorf("Expected = %d, want 1500", report.Expected)
	}
	if !report.Complete() {
		t.Errorf("range should be complete, missing %d", report.MissingCount())
	}
	if report.Completeness() != 100 {
		t.Errorf("Completeness = %f, want 100", report.Completeness())
	}
}

func TestScanFindsGaps(t *testing.T) {
	store := NewStore(t.TempDir())
	skip := map[uint64]bool{500: true, 1000: true, 2001: true}
	fillRange(t, store, 1, 2500, skip)

	report, err := NewScanner(store, "testnet").Scan(context.Background(), 1, 2500)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if report.Expected != 2500 {
		t.Errorf("Expected = %d, want 2500", report.Expected)
	}
	if report.MissingCount() != 3 {
		t.Fatalf("MissingCount = %d, want 3: %v", report.MissingCount(), report.Missing)
	}

	want := map[uint64]bool{500: true, 1000: true, 2001: true}
	for _, h := range report.Missing {
		if !want[h] {
			t.Errorf("unexpected missing height %d", h)
		}
	}

	// 500 and 1000 both belong to shard (0,0); 2001 to (0,2000).
	if len(report.Shards) != 2 {
		t.Fatalf("incomplete shards = %d, want 2: %v", len(report.Shards), report.Shards)
	}
	worst := report.WorstShards(1)
	if worst[0].Shard.Thousands != 0 || worst[0].Missing != 2 {
		t.Errorf("worst shard = %+v, want shard 0/0 with 2 missing", worst[0])
	}
}

func TestScanPartialLastShard(t *testing.T) {
	store := NewStore(t.TempDir())

	report, err := NewScanner(store, "testnet").Scan(context.Background(), 2001, 2500)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// Only 500 heights fall in shard (0,2000) when the range ends at 2500.
	if report.Expected != 500 {
		t.Errorf("Expected = %d, want 500", report.Expected)
	}
	if report.MissingCount() != 500 {
		t.Errorf("MissingCount = %d, want 500", report.MissingCount())
	}
}

func TestScanEmptyRange(t *testing.T) {
	store := NewStore(t.TempDir())

	report, err := NewScanner(store, "testnet").Scan(context.Background(), 10, 5)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if report.Expected != 0 || !report.Complete() {
		t.Errorf("empty range should report nothing: %+v", report)
	}
}
