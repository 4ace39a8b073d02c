package learning

import (
	"math"
	"testing"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

func reads(path string, ages ...time.Duration) []storage.UsageEvent {
	now := time.Now()
	events := make([]storage.UsageEvent, 0, len(ages))
	for _, age := range ages {
		events = append(events, storage.UsageEvent{Path: path, Tool: "get_file_content", Timestamp: now.Add(-age)})
	}
	return events
}

func TestScore_EmptyHistory(t *testing.T) {
	if score := Score("a.plsql", nil); score != 0.0 {
		t.Errorf("expected score 0.0 for empty history, got %f", score)
	}
}

func TestScore_OtherFileOnly(t *testing.T) {
	if score := Score("a.plsql", reads("b.plsql", time.Hour)); score != 0.0 {
		t.Errorf("expected score 0.0 for another file's history, got %f", score)
	}
}

func TestCalculateFrequency_WithinWindow(t *testing.T) {
	freq := calculateFrequency(reads("a", time.Hour, 2*time.Hour, 24*time.Hour))

	expected := 3.0 / frequencySaturation
	if math.Abs(freq-expected) > 0.001 {
		t.Errorf("expected frequency ~%f, got %f", expected, freq)
	}
}

func TestCalculateFrequency_OutsideWindow(t *testing.T) {
	if freq := calculateFrequency(reads("a", 8*24*time.Hour)); freq != 0.0 {
		t.Errorf("expected frequency 0.0 for events outside window, got %f", freq)
	}
}

func TestCalculateFrequency_Capped(t *testing.T) {
	ages := make([]time.Duration, 150)
	for i := range ages {
		ages[i] = time.Duration(i) * time.Minute
	}
	if freq := calculateFrequency(reads("a", ages...)); freq != 1.0 {
		t.Errorf("expected frequency 1.0 (capped), got %f", freq)
	}
}

func TestCalculateRecency(t *testing.T) {
	if r := calculateRecency(nil); r != 0.0 {
		t.Errorf("expected recency 0.0 for empty history, got %f", r)
	}
	if r := calculateRecency(reads("a", time.Hour)); r < 0.9 {
		t.Errorf("expected recency >0.9 for a read one hour ago, got %f", r)
	}
	if r := calculateRecency(reads("a", 24*time.Hour)); math.Abs(r-0.5) > 0.01 {
		t.Errorf("expected recency ~0.5 after one half-life, got %f", r)
	}
	if r := calculateRecency(reads("a", 72*time.Hour)); r > 0.2 {
		t.Errorf("expected recency <0.2 after three days, got %f", r)
	}
}

func TestScore_RecentBeatsOld(t *testing.T) {
	recent := Score("a", reads("a", time.Hour))
	old := Score("a", reads("a", 6*24*time.Hour))

	if recent <= old {
		t.Errorf("expected recent read to score higher: recent=%f old=%f", recent, old)
	}
	if recent > 1.0 || old < 0.0 {
		t.Errorf("scores out of range: recent=%f old=%f", recent, old)
	}
}

func TestPopularity(t *testing.T) {
	store := newMockStorage()
	for _, e := range reads("hot.plsql", time.Hour, 2*time.Hour, 3*time.Hour) {
		_ = store.RecordUsage(e)
	}
	for _, e := range reads("warm.plsql", 30*time.Hour) {
		_ = store.RecordUsage(e)
	}
	for _, e := range reads("stale.plsql", 10*24*time.Hour) {
		_ = store.RecordUsage(e)
	}

	scores := Popularity([]string{"hot.plsql", "warm.plsql", "stale.plsql", "cold.plsql"}, store)

	if len(scores) != 2 {
		t.Fatalf("expected 2 scored files, got %d: %v", len(scores), scores)
	}
	if scores["hot.plsql"] <= scores["warm.plsql"] {
		t.Errorf("expected hot > warm, got %v", scores)
	}
	if _, ok := scores["cold.plsql"]; ok {
		t.Error("expected unread file to be absent")
	}
}

func TestPopularity_NilStore(t *testing.T) {
	if scores := Popularity([]string{"a"}, nil); len(scores) != 0 {
		t.Errorf("expected empty scores, got %v", scores)
	}
}

func TestRankFiles(t *testing.T) {
	store := newMockStorage()
	if ranked := RankFiles(store); len(ranked) != 0 {
		t.Fatalf("expected empty ranking, got %v", ranked)
	}

	for _, e := range reads("b.plsql", time.Hour, time.Hour) {
		_ = store.RecordUsage(e)
	}
	for _, e := range reads("a.plsql", 48*time.Hour) {
		_ = store.RecordUsage(e)
	}

	ranked := RankFiles(store)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked files, got %d", len(ranked))
	}
	if ranked[0].Path != "b.plsql" {
		t.Errorf("expected b.plsql first, got %s", ranked[0].Path)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("expected descending scores: %v", ranked)
	}
}
