package blobstore

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCreateAndRevoke(t *testing.T) {
	store := New()
	url := store.CreateObjectURL([]byte("png bytes"), "image/png")
	if !strings.HasPrefix(url, URLPrefix) {
		t.Fatalf("Expected URL under %s, got %s", URLPrefix, url)
	}

	id, ok := IDFromURL(url)
	if !ok {
		t.Fatalf("Could not parse id from %s", url)
	}
	blob, ok := store.Get(id)
	if !ok {
		t.Fatal("Expected blob to be registered")
	}
	if string(blob.Data) != "png bytes" || blob.MediaType != "image/png" {
		t.Errorf("Unexpected blob %+v", blob)
	}

	if !store.RevokeObjectURL(url) {
		t.Error("Expected revoke to remove the blob")
	}
	if store.RevokeObjectURL(url) {
		t.Error("Expected a second revoke to be a no-op")
	}
	if _, ok := store.Get(id); ok {
		t.Error("Expected blob to be gone after revoke")
	}
}

func TestIDFromURL(t *testing.T) {
	for _, url := range []string{"", "/blob/", "/files/01HZX3J4K5M6N7P8Q9R0S1T2V3", "/blob/not-a-ulid", "blob:/blob/x"} {
		if _, ok := IDFromURL(url); ok {
			t.Errorf("Expected %q to be rejected", url)
		}
	}
}

func TestSweep(t *testing.T) {
	store := New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	old := store.CreateObjectURL([]byte("old"), "image/png")
	now = now.Add(time.Hour)
	fresh := store.CreateObjectURL([]byte("fresh"), "image/png")

	if removed := store.Sweep(30 * time.Minute); removed != 1 {
		t.Errorf("Expected 1 blob swept, got %d", removed)
	}
	if id, _ := IDFromURL(old); id != "" {
		if _, ok := store.Get(id); ok {
			t.Error("Expected old blob to be swept")
		}
	}
	if id, _ := IDFromURL(fresh); id != "" {
		if _, ok := store.Get(id); !ok {
			t.Error("Expected fresh blob to survive")
		}
	}
}

func TestConcurrentUse(t *testing.T) {
	store := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url := store.CreateObjectURL([]byte("x"), "image/png")
			store.RevokeObjectURL(url)
		}()
	}
	wg.Wait()
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d", store.Len())
	}
}
