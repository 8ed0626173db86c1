package control

import (
	"context"
	"testing"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/core/config"
	"github.com/evmstore/blockcache/internal/core/domain"
	"github.com/evmstore/blockcache/internal/fetch/bulk"
	"github.com/evmstore/blockcache/internal/fetch/live"
)

type fakeScanner struct {
	report *domain.GapReport
}

func (f *fakeScanner) Scan(_ context.Context, start, end uint64) (*domain.GapReport, error) {
	f.report.Start = start
	f.report.End = end
	return f.report, nil
}

type fakeBulk struct {
	got  []uint64
	fail map[uint64]bool
}

func (f *fakeBulk) Fill(_ context.Context, heights []uint64) bulk.Result {
	f.got = heights
	var res bulk.Result
	for _, h := range heights {
		if f.fail[h] {
			res.Failed++
		} else {
			res.Downloaded++
		}
	}
	return res
}

type fakeLive struct {
	res    live.Result
	called bool
}

func (f *fakeLive) Run(_ context.Context, _ live.Options) (live.Result, error) {
	f.called = true
	return f.res, nil
}

func testProfile() config.Profile {
	return config.Profile{Bucket: "test-bucket", BulkStart: 100}
}

func TestCheckRoutesFixableHeights(t *testing.T) {
	scanner := &fakeScanner{report: &domain.GapReport{
		Expected: 1000,
		Missing:  []uint64{50, 99, 100, 250, 900},
	}}
	bulkF := &fakeBulk{}
	runner := NewRunner(archive.NewStore(t.TempDir()), scanner, bulkF, nil, testProfile(), "testnet")

	report, err := runner.Check(context.Background(), Options{Start: 1, End: 1000, Fix: true})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	// 50 and 99 predate the bulk range and must be skipped, not attempted.
	if len(bulkF.got) != 3 {
		t.Fatalf("bulk received %v, want the 3 heights >= 100", bulkF.got)
	}
	if report.SkippedBelowBulk != 2 {
		t.Errorf("SkippedBelowBulk = %d, want 2", report.SkippedBelowBulk)
	}
	if report.Bulk.Downloaded != 3 {
		t.Errorf("Downloaded = %d, want 3", report.Bulk.Downloaded)
	}
}

func TestCheckWithoutFixDoesNotDownload(t *testing.T) {
	scanner := &fakeScanner{report: &domain.GapReport{
		Expected: 10,
		Missing:  []uint64{200},
	}}
	bulkF := &fakeBulk{}
	runner := NewRunner(archive.NewStore(t.TempDir()), scanner, bulkF, nil, testProfile(), "testnet")

	report, err := runner.Check(context.Background(), Options{Start: 100, End: 110})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if bulkF.got != nil {
		t.Errorf("bulk should not be invoked without Fix, got %v", bulkF.got)
	}
	if report.ExitCode() != 1 {
		t.Errorf("ExitCode = %d, want 1 while heights remain missing", report.ExitCode())
	}
}

func TestCheckCompleteRangeExitsZero(t *testing.T) {
	scanner := &fakeScanner{report: &domain.GapReport{Expected: 10}}
	runner := NewRunner(archive.NewStore(t.TempDir()), scanner, &fakeBulk{}, nil, testProfile(), "testnet")

	report, err := runner.Check(context.Background(), Options{Start: 100, End: 110, Fix: true})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Errorf("ExitCode = %d, want 0 for a complete range", report.ExitCode())
	}
}

func TestCheckDryRunSkipsRepair(t *testing.T) {
	scanner := &fakeScanner{report: &domain.GapReport{
		Expected: 10,
		Missing:  []uint64{200, 300},
	}}
	bulkF := &fakeBulk{}
	runner := NewRunner(archive.NewStore(t.TempDir()), scanner, bulkF, nil, testProfile(), "testnet")

	if _, err := runner.Check(context.Background(), Options{Start: 100, End: 400, Fix: true, DryRun: true}); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if bulkF.got != nil {
		t.Errorf("dry run must not download, got %v", bulkF.got)
	}
}

func TestSyncRunsLiveAfterCheck(t *testing.T) {
	scanner := &fakeScanner{report: &domain.GapReport{Expected: 10}}
	liveF := &fakeLive{res: live.Result{Written: 7}}
	runner := NewRunner(archive.NewStore(t.TempDir()), scanner, &fakeBulk{}, liveF, testProfile(), "testnet")

	report, err := runner.Sync(context.Background(), Options{Start: 100})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !liveF.called {
		t.Fatal("live fetcher was not invoked")
	}
	if report.Live.Written != 7 {
		t.Errorf("Live.Written = %d, want 7", report.Live.Written)
	}
	if report.ExitCode() != 0 {
		t.Errorf("ExitCode = %d, want 0", report.ExitCode())
	}
}

func TestSyncLiveErrorsAffectExitCode(t *testing.T) {
	scanner := &fakeScanner{report: &domain.GapReport{Expected: 10}}
	liveF := &fakeLive{res: live.Result{Written: 5, Errors: 2}}
	runner := NewRunner(archive.NewStore(t.TempDir()), scanner, &fakeBulk{}, liveF, testProfile(), "testnet")

	report, err := runner.Sync(context.Background(), Options{Start: 100})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if report.Remaining() != 2 {
		t.Errorf("Remaining = %d, want 2", report.Remaining())
	}
	if report.ExitCode() != 1 {
		t.Errorf("ExitCode = %d, want 1", report.ExitCode())
	}
}
