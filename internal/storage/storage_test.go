package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fitroom/internal/config"
	"fitroom/internal/storage"
)

func newStores(t *testing.T) map[string]storage.Storage {
	t.Helper()

	disk := storage.NewDiskStorage(t.TempDir())
	sqlite := storage.NewSQLiteStorage(t.TempDir())

	stores := map[string]storage.Storage{
		"memory": storage.NewMemoryStorage(),
		"disk":   disk,
		"sqlite": sqlite,
	}
	for name, s := range stores {
		if err := s.Init(); err != nil {
			t.Fatalf("%s Init failed: %v", name, err)
		}
		s := s
		t.Cleanup(func() { s.Close() })
	}
	return stores
}

func TestStorageRoundTrip(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get("missing"); !errors.Is(err, storage.ErrKeyNotFound) {
				t.Fatalf("expected ErrKeyNotFound, got %v", err)
			}

			if err := s.Set("a", "1"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := s.Set("a", "2"); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			if err := s.Set("b", "3"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			v, err := s.Get("a")
			if err != nil || v != "2" {
				t.Fatalf("expected 2, got %q (%v)", v, err)
			}

			keys, err := s.Keys()
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
				t.Fatalf("unexpected keys %v", keys)
			}

			if err := s.Delete("a"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := s.Delete("a"); err != nil {
				t.Fatalf("deleting a missing key should not fail: %v", err)
			}
			if _, err := s.Get("a"); !errors.Is(err, storage.ErrKeyNotFound) {
				t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
			}
		})
	}
}

func TestDiskStorageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	first := storage.NewDiskStorage(dir)
	if err := first.Init(); err != nil {
		t.Fatal(err)
	}
	if err := first.Set("lastUploadedImage", "http://host/uploads/model.jpg"); err != nil {
		t.Fatal(err)
	}

	second := storage.NewDiskStorage(dir)
	if err := second.Init(); err != nil {
		t.Fatal(err)
	}
	v, err := second.Get("lastUploadedImage")
	if err != nil || v != "http://host/uploads/model.jpg" {
		t.Fatalf("expected persisted value, got %q (%v)", v, err)
	}
}

func TestSQLiteStorageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	first := storage.NewSQLiteStorage(dir)
	if err := first.Init(); err != nil {
		t.Fatal(err)
	}
	if err := first.Set("chatSessionId", "abc"); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := storage.NewSQLiteStorage(dir)
	if err := second.Init(); err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	v, err := second.Get("chatSessionId")
	if err != nil || v != "abc" {
		t.Fatalf("expected persisted value, got %q (%v)", v, err)
	}
}

func TestDiskStorageRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "kv.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	err := storage.NewDiskStorage(dir).Init()
	if !errors.Is(err, storage.ErrStorageInit) {
		t.Fatalf("expected ErrStorageInit, got %v", err)
	}
}

func TestNamespacedIsolatesKeys(t *testing.T) {
	inner := storage.NewMemoryStorage()
	a := storage.NewNamespaced(inner, "app-a")
	b := storage.NewNamespaced(inner, "app-b")

	if err := a.Set("chatSessionId", "one"); err != nil {
		t.Fatal(err)
	}
	if err := b.Set("chatSessionId", "two"); err != nil {
		t.Fatal(err)
	}

	if v, _ := a.Get("chatSessionId"); v != "one" {
		t.Fatalf("expected one, got %q", v)
	}
	if v, _ := inner.Get("app-b:chatSessionId"); v != "two" {
		t.Fatalf("expected prefixed key in inner store, got %q", v)
	}

	keys, err := a.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "chatSessionId" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestNewFallsBackToMemory(t *testing.T) {
	// 数据目录是一个普通文件，磁盘存储无法初始化
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	s := storage.New(config.StorageConfig{Type: "disk", DataDir: blocker, Namespace: "fitroom"})
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("fallback store should accept writes: %v", err)
	}
	if v, _ := s.Get("k"); v != "v" {
		t.Fatalf("expected v, got %q", v)
	}
}
