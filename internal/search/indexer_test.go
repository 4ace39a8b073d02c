package search

import (
	"errors"
	"path/filepath"
	"testing"
)

func testDocuments() []Document {
	return []Document{
		{
			Path:      "order/CustomerOrder.plsql",
			Name:      "CustomerOrder",
			Type:      "plsql",
			Component: "order",
			APIs:      []string{"Customer_Order_API", "Release_Order"},
			Keywords:  "customer order api release order",
			Content:   "PROCEDURE Release_Order IS BEGIN NULL; END Release_Order;",
		},
		{
			Path:      "order/CustomerOrder.entity",
			Name:      "CustomerOrder",
			Type:      "entity",
			Component: "order",
			Entity:    "CustomerOrder",
			Keywords:  "customer order",
			Content:   "entityname CustomerOrder;",
		},
		{
			Path:      "invoic/Invoice.plsql",
			Name:      "Invoice",
			Type:      "plsql",
			Component: "invoic",
			APIs:      []string{"Invoice_API"},
			Keywords:  "invoice api",
			Content:   "PROCEDURE Post_Invoice IS BEGIN NULL; END Post_Invoice;",
		},
	}
}

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()

	indexer, err := NewIndexerWithPath(filepath.Join(t.TempDir(), "bm25s"))
	if err != nil {
		t.Fatalf("failed to create indexer: %v", err)
	}
	t.Cleanup(func() { indexer.Close() })

	if err := indexer.IndexDocuments(testDocuments()); err != nil {
		t.Fatalf("failed to index documents: %v", err)
	}
	return indexer
}

func TestIndexDocuments(t *testing.T) {
	indexer := newTestIndexer(t)

	count, err := indexer.Count()
	if err != nil {
		t.Fatalf("failed to get count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 indexed files, got %d", count)
	}

	// Re-indexing the same paths replaces documents.
	if err := indexer.IndexDocuments(testDocuments()[:1]); err != nil {
		t.Fatalf("failed to reindex: %v", err)
	}
	if count, _ := indexer.Count(); count != 3 {
		t.Errorf("expected 3 indexed files after reindex, got %d", count)
	}
}

func TestSearchBM25(t *testing.T) {
	indexer := newTestIndexer(t)

	results, err := indexer.SearchBM25("invoice", 10, Filters{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result for 'invoice'")
	}
	if results[0].Path != "invoic/Invoice.plsql" {
		t.Errorf("expected Invoice.plsql first, got %s", results[0].Path)
	}
	if results[0].Name != "Invoice" || results[0].Type != "plsql" || results[0].Component != "invoic" {
		t.Errorf("stored fields not returned: %+v", results[0])
	}
}

func TestSearchBM25_Filters(t *testing.T) {
	indexer := newTestIndexer(t)

	results, err := indexer.SearchBM25("customer order", 10, Filters{FileType: "entity"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Path != "order/CustomerOrder.entity" {
		t.Errorf("type filter not applied: %+v", results)
	}

	results, err = indexer.SearchBM25("api", 10, Filters{Component: "ORDER"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for _, r := range results {
		if r.Component != "order" {
			t.Errorf("component filter not applied: %+v", r)
		}
	}
}

func TestSearchBM25NoResults(t *testing.T) {
	indexer := newTestIndexer(t)

	results, err := indexer.SearchBM25("nonexistentxyz", 10, Filters{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for non-existent query, got %d", len(results))
	}
}

func TestPersistentIndexer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm25s")

	if _, err := OpenIndexer(path); !errors.Is(err, ErrIndexNotBuilt) {
		t.Fatalf("expected ErrIndexNotBuilt for missing index, got %v", err)
	}

	indexer, err := NewIndexerWithPath(path)
	if err != nil {
		t.Fatalf("NewIndexerWithPath failed: %v", err)
	}
	if err := indexer.IndexDocuments(testDocuments()); err != nil {
		t.Fatalf("IndexDocuments failed: %v", err)
	}
	if err := indexer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenIndexer(path)
	if err != nil {
		t.Fatalf("OpenIndexer failed: %v", err)
	}
	defer reopened.Close()

	if count, _ := reopened.Count(); count != 3 {
		t.Errorf("expected 3 files after reopen, got %d", count)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeHybrid, "HYBRID": ModeHybrid, "keyword": ModeKeyword, " semantic ": ModeSemantic} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("fuzzy"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
