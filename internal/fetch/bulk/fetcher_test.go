package bulk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/core/domain"
)

// fakeObjectStore serves seeded keys and fails on everything else.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   int
}

func (f *fakeObjectStore) GetObject(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if data, ok := f.objects[key]; ok {
		return data, nil
	}
	return nil, errors.New("NoSuchKey")
}

func seededStore(heights ...uint64) *fakeObjectStore {
	objects := make(map[string][]byte)
	for _, h := range heights {
		objects[domain.RelPath(h)] = []byte("record")
	}
	return &fakeObjectStore{objects: objects}
}

func TestFillDownloadsAll(t *testing.T) {
	heights := []uint64{18_000_001, 18_000_002, 18_001_000, 45_000_000}
	objects := seededStore(heights...)
	store := archive.NewStore(t.TempDir())

	res := NewFetcher(objects, store, 4, "testnet").Fill(context.Background(), heights)

	if res.Downloaded != len(heights) || res.Failed != 0 {
		t.Fatalf("Fill = %+v, want %d downloaded", res, len(heights))
	}
	for _, h := range heights {
		if !store.Exists(h) {
			t.Errorf("height %d not written", h)
		}
	}
	// Object keys and local paths must use the same scheme.
	if !strings.HasPrefix(domain.RelPath(45_000_000), "44000000/44999000/") {
		t.Errorf("unexpected object key %s", domain.RelPath(45_000_000))
	}
}

func TestFillCountsFailuresWithoutAborting(t *testing.T) {
	objects := seededStore(100, 102)
	store := archive.NewStore(t.TempDir())

	res := NewFetcher(objects, store, 2, "testnet").Fill(
		context.Background(), []uint64{100, 101, 102, 103})

	if res.Downloaded != 2 {
		t.Errorf("Downloaded = %d, want 2", res.Downloaded)
	}
	if res.Failed != 2 {
		t.Errorf("Failed = %d, want 2", res.Failed)
	}
	if !store.Exists(100) || !store.Exists(102) {
		t.Error("successful heights should be written despite sibling failures")
	}
	if store.Exists(101) || store.Exists(103) {
		t.Error("failed heights must not leave entries behind")
	}
	// No retries: one call per height.
	if objects.calls != 4 {
		t.Errorf("calls = %d, want 4", objects.calls)
	}
}

func TestFillEmpty(t *testing.T) {
	store := archive.NewStore(t.TempDir())
	res := NewFetcher(seededStore(), store, 2, "testnet").Fill(context.Background(), nil)
	if res.Downloaded != 0 || res.Failed != 0 {
		t.Errorf("Fill(nil) = %+v, want zero", res)
	}
}
