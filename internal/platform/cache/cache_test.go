package cache

import (
	"testing"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
)

func testEntity(t *testing.T, value string) domain.Entity {
	t.Helper()
	e, err := domain.NewEntity(domain.KindDomain, value, 0)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func testResult(moduleID string) *domain.ModuleResult {
	r := domain.NewModuleResult(moduleID)
	r.AddFinding("mx_host", "mail.example.com", "dns")
	return r
}

func TestKey(t *testing.T) {
	e1 := testEntity(t, "example.com")
	e2 := testEntity(t, "other.com")

	if Key("web", e1) != Key("web", e1) {
		t.Error("key is not deterministic")
	}
	if Key("web", e1) == Key("web", e2) {
		t.Error("distinct entities share a key")
	}
	if Key("web", e1) == Key("social", e1) {
		t.Error("distinct modules share a key")
	}

	t.Run("depth is not part of the key", func(t *testing.T) {
		deep := e1.AtDepth(4)
		if Key("web", e1) != Key("web", deep) {
			t.Error("cache key must ignore depth")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	t.Run("get put roundtrip", func(t *testing.T) {
		store := NewMemoryStore()
		e := testEntity(t, "example.com")
		store.Put("web", e, testResult("web"), time.Minute)

		got, ok := store.Get("web", e)
		if !ok {
			t.Fatal("expected hit")
		}
		if len(got.Findings) != 1 || got.Findings[0].Value != "mail.example.com" {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		store := NewMemoryStore()
		if _, ok := store.Get("web", testEntity(t, "example.com")); ok {
			t.Error("expected miss")
		}
	})

	t.Run("ttl expiry", func(t *testing.T) {
		store := NewMemoryStore()
		e := testEntity(t, "example.com")
		store.Put("web", e, testResult("web"), 20*time.Millisecond)

		time.Sleep(40 * time.Millisecond)
		if _, ok := store.Get("web", e); ok {
			t.Error("expired entry served")
		}
		if store.Size() != 0 {
			t.Error("expired entry not dropped on read")
		}
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		store := NewMemoryStore()
		e := testEntity(t, "example.com")
		store.Put("web", e, testResult("web"), 0)
		if _, ok := store.Get("web", e); !ok {
			t.Error("zero-ttl entry missing")
		}
	})

	t.Run("reads are isolated from the stored entry", func(t *testing.T) {
		store := NewMemoryStore()
		e := testEntity(t, "example.com")
		store.Put("web", e, testResult("web"), time.Minute)

		first, _ := store.Get("web", e)
		first.Findings[0].Value = "tampered"

		second, _ := store.Get("web", e)
		if second.Findings[0].Value != "mail.example.com" {
			t.Error("a reader mutated the stored entry")
		}
	})

	t.Run("invalidate", func(t *testing.T) {
		store := NewMemoryStore()
		e := testEntity(t, "example.com")
		store.Put("web", e, testResult("web"), time.Minute)
		store.Invalidate("web", e)
		if _, ok := store.Get("web", e); ok {
			t.Error("invalidated entry served")
		}
	})

	t.Run("clean expired", func(t *testing.T) {
		store := NewMemoryStore()
		store.Put("web", testEntity(t, "a.com"), testResult("web"), 10*time.Millisecond)
		store.Put("web", testEntity(t, "b.com"), testResult("web"), time.Hour)

		time.Sleep(30 * time.Millisecond)
		if removed := store.CleanExpired(); removed != 1 {
			t.Errorf("removed = %d, want 1", removed)
		}
		if store.Size() != 1 {
			t.Errorf("size = %d, want 1", store.Size())
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenSQLite(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	e := testEntity(t, "example.com")

	t.Run("roundtrip", func(t *testing.T) {
		store.Put("web", e, testResult("web"), time.Hour)
		got, ok := store.Get("web", e)
		if !ok {
			t.Fatal("expected hit")
		}
		if len(got.Findings) != 1 || got.Findings[0].Type != "mx_host" {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("refresh replaces", func(t *testing.T) {
		updated := domain.NewModuleResult("web")
		updated.AddFinding("mx_host", "mx2.example.com", "dns")
		store.Put("web", e, updated, time.Hour)

		got, ok := store.Get("web", e)
		if !ok {
			t.Fatal("expected hit after refresh")
		}
		if got.Findings[0].Value != "mx2.example.com" {
			t.Error("refresh did not replace the entry")
		}
	})

	t.Run("invalidate", func(t *testing.T) {
		store.Invalidate("web", e)
		if _, ok := store.Get("web", e); ok {
			t.Error("invalidated entry served")
		}
	})

	t.Run("expired entries are misses", func(t *testing.T) {
		store.Put("web", e, testResult("web"), -time.Second)
		if _, ok := store.Get("web", e); ok {
			t.Error("expired entry served")
		}
	})

	t.Run("clean expired", func(t *testing.T) {
		store.Put("a", e, testResult("a"), -time.Second)
		store.Put("b", e, testResult("b"), time.Hour)
		if removed := store.CleanExpired(); removed != 1 {
			t.Errorf("removed = %d, want 1", removed)
		}
	})

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	t.Run("persists across reopen", func(t *testing.T) {
		reopened, err := OpenSQLite(dir, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer reopened.Close()

		if _, ok := reopened.Get("b", e); !ok {
			t.Error("entry lost across reopen")
		}
	})
}
