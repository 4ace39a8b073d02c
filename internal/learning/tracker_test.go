package learning

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

// mockStorage is an in-memory storage.Storage safe for use from the tracker goroutine.
type mockStorage struct {
	mu     sync.Mutex
	events []storage.UsageEvent
}

func newMockStorage() *mockStorage {
	return &mockStorage{}
}

func (m *mockStorage) Init() error { return nil }

func (m *mockStorage) RecordUsage(event storage.UsageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockStorage) GetUsageHistory(path string, since time.Time) ([]storage.UsageEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.UsageEvent
	for _, e := range m.events {
		if (path == "" || e.Path == path) && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStorage) RecordSearch(storage.SearchRecord) error { return nil }

func (m *mockStorage) Cleanup(time.Duration) error { return nil }

func (m *mockStorage) Close() error { return nil }

func (m *mockStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type errorMockStorage struct {
	mockStorage
	initErr   error
	recordErr error
}

func (m *errorMockStorage) Init() error { return m.initErr }

func (m *errorMockStorage) RecordUsage(event storage.UsageEvent) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	return m.mockStorage.RecordUsage(event)
}

func waitForEvents(t *testing.T, m *mockStorage, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.count() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d events, got %d", want, m.count())
}

func TestNewTracker(t *testing.T) {
	mockStore := newMockStorage()
	tracker := NewTracker(mockStore)
	defer tracker.Stop()

	if tracker == nil {
		t.Fatal("NewTracker returned nil")
	}
	if !tracker.IsEnabled() {
		t.Error("expected tracker to be enabled")
	}
}

func TestNewTracker_InitFailureDisables(t *testing.T) {
	store := &errorMockStorage{initErr: errors.New("disk full")}
	tracker := NewTracker(store)
	defer tracker.Stop()

	if tracker.IsEnabled() {
		t.Error("expected tracker to be disabled after init failure")
	}
}

func TestTracker_Track(t *testing.T) {
	mockStore := newMockStorage()
	tracker := NewTracker(mockStore)
	defer tracker.Stop()

	tracker.Track(NewUsageEvent("fndbas/source/fndbas/database/Fnd_User.plsql", "get_file_content", "user api"))
	waitForEvents(t, mockStore, 1)

	history, err := mockStore.GetUsageHistory("fndbas/source/fndbas/database/Fnd_User.plsql", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 event, got %d", len(history))
	}
	if history[0].Tool != "get_file_content" {
		t.Errorf("expected tool get_file_content, got %q", history[0].Tool)
	}
	if history[0].ContextHash == "" || history[0].ContextHash == "user api" {
		t.Errorf("expected hashed context, got %q", history[0].ContextHash)
	}
}

func TestTracker_TrackMultiple(t *testing.T) {
	mockStore := newMockStorage()
	tracker := NewTracker(mockStore)
	defer tracker.Stop()

	for i := 0; i < 25; i++ {
		tracker.Track(NewUsageEvent("a.plsql", "get_file_content", ""))
	}
	waitForEvents(t, mockStore, 25)
}

func TestTracker_DisabledIgnoresEvents(t *testing.T) {
	store := &errorMockStorage{initErr: errors.New("read-only")}
	tracker := NewTracker(store)

	tracker.Track(NewUsageEvent("a.plsql", "get_file_content", ""))
	tracker.Stop()

	if got := store.count(); got != 0 {
		t.Errorf("expected no events when disabled, got %d", got)
	}
	if got := tracker.Queued(); got != 0 {
		t.Errorf("Queued() = %d, want 0", got)
	}
}

func TestTracker_StopFlushesPending(t *testing.T) {
	mockStore := newMockStorage()
	tracker := NewTracker(mockStore)

	for i := 0; i < 5; i++ {
		tracker.Track(NewUsageEvent("a.plsql", "get_file_content", ""))
	}
	tracker.Stop()

	if got := mockStore.count(); got != 5 {
		t.Errorf("expected 5 events after stop, got %d", got)
	}

	// Second stop is a no-op.
	tracker.Stop()
}

func TestTracker_TrackNonBlocking(t *testing.T) {
	mockStore := newMockStorage()
	tracker := NewTracker(mockStore)

	start := time.Now()
	for i := 0; i < eventQueueSize*2; i++ {
		tracker.Track(NewUsageEvent("a.plsql", "get_file_content", ""))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Track blocked for %v", elapsed)
	}

	tracker.Stop()
	if got := tracker.Written() + tracker.Dropped(); got != eventQueueSize*2 {
		t.Errorf("written + dropped = %d, want %d", got, eventQueueSize*2)
	}
}

func TestTracker_Queued(t *testing.T) {
	mockStore := newMockStorage()
	tracker := NewTracker(mockStore)
	defer tracker.Stop()

	if size := tracker.Queued(); size < 0 || size > eventQueueSize {
		t.Errorf("queue size out of range: %d", size)
	}
}

func TestTracker_StorageError(t *testing.T) {
	store := &errorMockStorage{recordErr: errors.New("write failed")}
	tracker := NewTracker(store)

	tracker.Track(NewUsageEvent("a.plsql", "get_file_content", ""))
	tracker.Stop()

	if got := store.count(); got != 0 {
		t.Errorf("expected failed writes to be dropped, got %d", got)
	}
	if got := tracker.Written(); got != 0 {
		t.Errorf("Written() = %d, want 0", got)
	}
}

func TestTracker_CountsAndLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := newMockStorage()
	tracker := NewTracker(store, WithTrackerLogger(logger))

	for i := 0; i < 3; i++ {
		tracker.Track(NewUsageEvent("order/source/order/database/CustomerOrder.plsql", "get_file_content", ""))
	}
	tracker.Stop()

	if got := tracker.Written(); got != 3 {
		t.Errorf("Written() = %d, want 3", got)
	}
	if got := tracker.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d, want 0", got)
	}

	failing := &errorMockStorage{initErr: errors.New("locked")}
	NewTracker(failing, WithTrackerLogger(logger)).Stop()
	if !strings.Contains(buf.String(), "usage tracking disabled") {
		t.Errorf("init failure not logged: %q", buf.String())
	}
}

func TestUsageEvent_ToStorage(t *testing.T) {
	event := NewUsageEvent("a.plsql", "get_file_content", "query")
	stored := event.ToStorage()

	if stored.Path != event.Path || stored.Tool != event.Tool {
		t.Errorf("unexpected conversion: %+v", stored)
	}
	if stored.ContextHash != event.ContextHash {
		t.Errorf("context hash mismatch")
	}
	if !stored.Timestamp.Equal(event.Timestamp) {
		t.Errorf("timestamp mismatch")
	}
}

func TestHashContext_Empty(t *testing.T) {
	if got := hashContext(""); got != "" {
		t.Errorf("expected empty hash for empty context, got %q", got)
	}
	if len(hashContext("x")) != 64 {
		t.Errorf("expected hex sha256")
	}
}
