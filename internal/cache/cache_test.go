package cache

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/histograde/internal/model"
)

func TestClassificationKey(t *testing.T) {
	a := ClassificationKey("Histologic Grade: 2", model.DiffSkip, 3)
	if !strings.HasPrefix(a, KeyPrefix) {
		t.Errorf("expected prefix %s, got %s", KeyPrefix, a)
	}
	if a != ClassificationKey("Histologic Grade: 2", model.DiffSkip, 3) {
		t.Error("expected stable key")
	}
	if a == ClassificationKey("Histologic Grade: 2", model.DiffExclude3, 3) {
		t.Error("expected mode to change the key")
	}
	if a == ClassificationKey("Histologic Grade: 2", model.DiffSkip, 4) {
		t.Error("expected ceiling to change the key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expected miss on empty cache")
	}
	_ = c.Set("k", []byte("v"), 0)
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Errorf("expected v, got %q %v", v, ok)
	}
	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	key := ClassificationKey("text", model.DiffSkip, 3)
	if err := c.Set(key, []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if v, ok := c.Get(key); !ok || string(v) != "v" {
		t.Errorf("expected v, got %q %v", v, ok)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || strings.Contains(entries[0].Name(), ":") {
		t.Errorf("expected one portable cache file, got %v", entries)
	}

	if err := c.Set("short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected expired entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "short.json")); !os.IsNotExist(err) {
		t.Error("expected expired entry file to be removed")
	}

	if err := c.Delete("never-set"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	_ = disk.Set("k", []byte("v"), 0)

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("expected disk hit, got %q %v", v, ok)
	}
	if v, ok := c.memory.Get("k"); !ok || string(v) != "v" {
		t.Error("expected disk hit to be promoted to memory")
	}
}

func TestNew(t *testing.T) {
	if New(model.CacheConfig{Enabled: false}) != nil {
		t.Error("expected nil cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true}).(*MemoryCache); !ok {
		t.Error("expected memory cache without a directory")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, Dir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("expected layered cache with a directory")
	}
}

func TestClassificationStore(t *testing.T) {
	store := NewClassificationStore(NewMemoryCache(time.Minute, time.Minute))
	key := ClassificationKey("Histologic Grade: 2", model.DiffSkip, 3)

	if _, ok := store.Get(key); ok {
		t.Error("expected miss")
	}

	want := model.Classification{Grades: []model.Grade{2}, Strategy: "header:histologic-grade-colon"}
	if err := store.Set(key, want); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, ok := store.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if !slices.Equal(got.Grades, want.Grades) || got.Strategy != want.Strategy {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	hits, misses := store.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d and %d", hits, misses)
	}
}

func TestClassificationStore_CorruptEntry(t *testing.T) {
	mem := NewMemoryCache(time.Minute, time.Minute)
	_ = mem.Set("bad", []byte("not json"), 0)

	store := NewClassificationStore(mem)
	if _, ok := store.Get("bad"); ok {
		t.Error("expected corrupt entry to miss")
	}
}

func TestDiskCache_ShardsDigestKeys(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, 0)

	key := ClassificationKey("Histologic Grade: 3", model.DiffMaxOnly, 3)
	if err := c.Set(key, []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	digest := strings.TrimPrefix(key, KeyPrefix)
	want := filepath.Join(dir, digest[:2], strings.ReplaceAll(key, ":", "_")+".json")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected entry at %s: %v", want, err)
	}
}

func TestDiskCache_Prune(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	fresh := ClassificationKey("fresh", model.DiffSkip, 3)
	expired := ClassificationKey("expired", model.DiffSkip, 3)
	outdated := "histograde:v0:" + strings.TrimPrefix(ClassificationKey("old", model.DiffSkip, 3), KeyPrefix)

	_ = c.Set(fresh, []byte("1"), 0)
	_ = c.Set(expired, []byte("2"), time.Minute)
	_ = c.Set(outdated, []byte("3"), 0)
	if err := os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := c.Prune(time.Now().Add(2 * time.Minute))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed files, got %d", removed)
	}
	if _, ok := c.Get(fresh); !ok {
		t.Error("expected fresh entry to survive")
	}
	if _, ok := c.Get(outdated); ok {
		t.Error("expected entry from an older key version to be pruned")
	}
}

func TestDiskCache_PruneMissingDir(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "absent"), time.Hour)
	removed, err := c.Prune(time.Now())
	if err != nil || removed != 0 {
		t.Errorf("expected nothing to prune, got %d %v", removed, err)
	}
}

func TestClassificationStore_Len(t *testing.T) {
	layered := NewLayeredCache(time.Minute, t.TempDir(), time.Hour)
	store := NewClassificationStore(layered)
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
	_ = store.Set(ClassificationKey("a", model.DiffSkip, 3), model.Classification{Grades: []model.Grade{1}, Strategy: "grade-words"})
	if store.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Len())
	}
	if NewClassificationStore(NewDiskCache(t.TempDir(), 0)).Len() != -1 {
		t.Error("expected -1 for a cache that cannot count")
	}
}
