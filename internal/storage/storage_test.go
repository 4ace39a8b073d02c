package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/analysis"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	storage, err := Open(filepath.Join(t.TempDir(), "analysis", "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func sampleFiles() []analysis.FileInfo {
	return []analysis.FileInfo{
		{
			Path:       "order/CustomerOrder.plsql",
			Name:       "CustomerOrder",
			Type:       "plsql",
			Component:  "order",
			APIs:       []string{"Customer_Order_API", "Release_Order"},
			References: []string{"Fnd_Session_API"},
			Lines:      120,
			Size:       4096,
		},
		{
			Path:      "order/CustomerOrder.entity",
			Name:      "CustomerOrder",
			Type:      "entity",
			Component: "order",
			Entity:    "CustomerOrder",
			Lines:     10,
			Size:      200,
		},
		{
			Path:      "fndbas/FndSession.plsql",
			Name:      "FndSession",
			Type:      "plsql",
			Component: "fndbas",
			APIs:      []string{"Fnd_Session_API"},
			Lines:     50,
			Size:      1000,
		},
	}
}

// TestInit verifies database initialization and schema creation.
func TestInit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "catalog.db")

	storage := NewStorage(dbPath)
	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer storage.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}
	if !storage.Enabled() {
		t.Error("storage should be enabled")
	}

	// Re-opening runs no migrations twice.
	storage.Close()
	again, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	again.Close()
}

func TestReplaceFilesAndGetFile(t *testing.T) {
	storage := newTestStorage(t)

	ranks := map[string]float64{"fndbas/FndSession.plsql": 1, "order/CustomerOrder.plsql": 0.4}
	if err := storage.ReplaceFiles(sampleFiles(), ranks); err != nil {
		t.Fatalf("ReplaceFiles failed: %v", err)
	}

	rec, err := storage.GetFile("order/CustomerOrder.plsql")
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if rec.Component != "order" || rec.Lines != 120 || rec.Size != 4096 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Rank != 0.4 {
		t.Errorf("Rank = %f, want 0.4", rec.Rank)
	}
	if len(rec.APIs) != 2 || rec.APIs[0] != "Customer_Order_API" {
		t.Errorf("APIs = %v", rec.APIs)
	}
	if len(rec.References) != 1 || rec.References[0] != "Fnd_Session_API" {
		t.Errorf("References = %v", rec.References)
	}

	_, err = storage.GetFile("missing.plsql")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}

	// Replacing drops previous entries.
	if err := storage.ReplaceFiles(sampleFiles()[:1], nil); err != nil {
		t.Fatalf("ReplaceFiles failed: %v", err)
	}
	n, err := storage.CountFiles()
	if err != nil {
		t.Fatalf("CountFiles failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountFiles = %d, want 1", n)
	}
}

func TestFindAPI(t *testing.T) {
	storage := newTestStorage(t)
	if err := storage.ReplaceFiles(sampleFiles(), nil); err != nil {
		t.Fatalf("ReplaceFiles failed: %v", err)
	}

	records, err := storage.FindAPI("customer_order_api")
	if err != nil {
		t.Fatalf("FindAPI failed: %v", err)
	}
	if len(records) != 1 || records[0].Path != "order/CustomerOrder.plsql" {
		t.Errorf("unexpected records: %+v", records)
	}

	records, err = storage.FindAPI("Nothing_API")
	if err != nil {
		t.Fatalf("FindAPI failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestListComponentsAndFiles(t *testing.T) {
	storage := newTestStorage(t)
	if err := storage.ReplaceFiles(sampleFiles(), nil); err != nil {
		t.Fatalf("ReplaceFiles failed: %v", err)
	}

	components, err := storage.ListComponents()
	if err != nil {
		t.Fatalf("ListComponents failed: %v", err)
	}
	if len(components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(components))
	}
	if components[0].Component != "fndbas" || components[0].Files != 1 {
		t.Errorf("unexpected first component: %+v", components[0])
	}
	if components[1].Component != "order" || components[1].Files != 2 {
		t.Errorf("unexpected second component: %+v", components[1])
	}

	files, err := storage.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 3 || files[0].Path != "fndbas/FndSession.plsql" {
		t.Errorf("unexpected files: %+v", files)
	}
	if len(files[0].APIs) != 1 {
		t.Errorf("APIs not attached: %+v", files[0])
	}
}

func TestEmbeddings(t *testing.T) {
	storage := newTestStorage(t)

	embeddings := []Embedding{
		{Path: "a.plsql", Vector: []float32{0.1, 0.2}},
		{Path: "b.plsql", Vector: []float32{0.3, 0.4}},
	}
	if err := storage.SaveEmbeddings("model-a", embeddings); err != nil {
		t.Fatalf("SaveEmbeddings failed: %v", err)
	}

	loaded, mismatched, err := storage.LoadEmbeddings("model-a")
	if err != nil {
		t.Fatalf("LoadEmbeddings failed: %v", err)
	}
	if len(loaded) != 2 || mismatched != 0 {
		t.Fatalf("loaded %d (mismatched %d), want 2 (0)", len(loaded), mismatched)
	}
	if loaded[1].Vector[1] != 0.4 {
		t.Errorf("unexpected vector: %v", loaded[1].Vector)
	}

	loaded, mismatched, err = storage.LoadEmbeddings("model-b")
	if err != nil {
		t.Fatalf("LoadEmbeddings failed: %v", err)
	}
	if len(loaded) != 0 || mismatched != 2 {
		t.Errorf("loaded %d (mismatched %d), want 0 (2)", len(loaded), mismatched)
	}
}

// TestRecordUsage verifies recording usage events.
func TestRecordUsage(t *testing.T) {
	storage := newTestStorage(t)

	for _, path := range []string{"a.plsql", "a.plsql", "b.plsql"} {
		event := UsageEvent{
			Path:        path,
			Tool:        "get_file_content",
			ContextHash: HashQuery("test query"),
			Timestamp:   time.Now(),
		}
		if err := storage.RecordUsage(event); err != nil {
			t.Fatalf("RecordUsage failed: %v", err)
		}
	}

	history, err := storage.GetUsageHistory("a.plsql", time.Now().Add(-1*time.Hour))
	if err != nil {
		t.Fatalf("GetUsageHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected 2 usage events, got %d", len(history))
	}

	all, err := storage.GetUsageHistory("", time.Now().Add(-1*time.Hour))
	if err != nil {
		t.Fatalf("GetUsageHistory failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 usage events, got %d", len(all))
	}
}

func TestSearchStats(t *testing.T) {
	storage := newTestStorage(t)

	records := []SearchRecord{
		{SearchID: "1", QueryHash: HashQuery("order"), Mode: "hybrid", Timestamp: time.Now(), ResultsCount: 10, Duration: 20 * time.Millisecond},
		{SearchID: "2", QueryHash: HashQuery("order"), Mode: "hybrid", Timestamp: time.Now(), ResultsCount: 10, CacheHit: true},
		{SearchID: "3", QueryHash: HashQuery("invoice"), Mode: "keyword", Timestamp: time.Now(), ResultsCount: 4},
	}
	for _, r := range records {
		if err := storage.RecordSearch(r); err != nil {
			t.Fatalf("RecordSearch failed: %v", err)
		}
	}
	storage.RecordUsage(UsageEvent{Path: "a.plsql", Tool: "get_file_content", Timestamp: time.Now()})

	stats, err := storage.SearchStats(5)
	if err != nil {
		t.Fatalf("SearchStats failed: %v", err)
	}
	if stats.TotalSearches != 3 || stats.UniqueQueries != 2 || stats.CacheHits != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.ByMode["hybrid"] != 2 || stats.ByMode["keyword"] != 1 {
		t.Errorf("unexpected modes: %v", stats.ByMode)
	}
	if stats.TotalReads != 1 || len(stats.TopFiles) != 1 || stats.TopFiles[0].Path != "a.plsql" {
		t.Errorf("unexpected usage stats: %+v", stats)
	}
}

func TestCleanup(t *testing.T) {
	storage := newTestStorage(t)

	storage.RecordUsage(UsageEvent{Path: "old.plsql", Tool: "get_file_content", Timestamp: time.Now().Add(-48 * time.Hour)})
	storage.RecordUsage(UsageEvent{Path: "new.plsql", Tool: "get_file_content", Timestamp: time.Now()})

	if err := storage.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	all, _ := storage.GetUsageHistory("", time.Now().Add(-72*time.Hour))
	if len(all) != 1 || all[0].Path != "new.plsql" {
		t.Errorf("unexpected history after cleanup: %+v", all)
	}
}

// TestHashQuery verifies query hashing consistency.
func TestHashQuery(t *testing.T) {
	query := "test query for hashing"

	hash1 := HashQuery(query)
	hash2 := HashQuery(query)

	if hash1 != hash2 {
		t.Error("HashQuery produced inconsistent results")
	}

	if len(hash1) != 64 { // SHA256 hex = 64 chars
		t.Errorf("Expected hash length 64, got %d", len(hash1))
	}
}

// TestGracefulDegradation verifies behavior when DB is unavailable.
func TestGracefulDegradation(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// The parent of the database path is a regular file, so Init fails.
	storage := NewStorage(filepath.Join(blocker, "catalog.db"))
	if err := storage.Init(); err == nil {
		t.Fatal("expected Init to fail")
	}

	event := UsageEvent{Path: "test", Tool: "get_file_content", Timestamp: time.Now()}
	if err := storage.RecordUsage(event); err != nil {
		t.Errorf("RecordUsage should return nil on disabled storage, got: %v", err)
	}

	history, err := storage.GetUsageHistory("test", time.Now())
	if err != nil {
		t.Errorf("GetUsageHistory should not error on disabled storage, got: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected empty history on disabled storage, got %d events", len(history))
	}

	if err := storage.ReplaceFiles(nil, nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("ReplaceFiles should report ErrDisabled, got %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Errorf("Close on disabled storage: %v", err)
	}
}

func TestNewStorage_EmptyPath(t *testing.T) {
	storage := NewStorage("")
	if storage.Enabled() {
		t.Error("storage with empty path should be disabled")
	}
	if err := storage.Init(); err != nil {
		t.Errorf("Init on disabled storage: %v", err)
	}
}
