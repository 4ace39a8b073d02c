package learning

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

const (
	// eventQueueSize bounds pending reads; Track drops events beyond it.
	eventQueueSize = 1000

	// batchFlushSize triggers a write before the next tick.
	batchFlushSize = 10

	flushInterval = 50 * time.Millisecond
)

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger used for dropped events and write errors.
func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Tracker records file reads in the background. Track never blocks a tool
// call; events are batched and written by a single goroutine.
type Tracker struct {
	storage storage.Storage
	logger  *slog.Logger
	events  chan UsageEvent
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	// enabled is fixed once NewTracker returns.
	enabled bool

	dropped atomic.Int64
	written atomic.Int64
}

// NewTracker starts a tracker writing to s. A storage that fails to
// initialise leaves the tracker disabled.
func NewTracker(s storage.Storage, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		storage: s,
		logger:  slog.Default(),
		events:  make(chan UsageEvent, eventQueueSize),
		stop:    make(chan struct{}),
		enabled: s != nil,
	}
	for _, opt := range opts {
		opt(t)
	}

	if s != nil {
		if err := s.Init(); err != nil {
			t.logger.Warn("usage tracking disabled", logging.Err(err))
			t.enabled = false
		}
	}

	t.wg.Add(1)
	go t.run()

	return t
}

// Track queues a file read. When the queue is full the event is dropped.
func (t *Tracker) Track(event UsageEvent) {
	if !t.IsEnabled() {
		return
	}

	select {
	case t.events <- event:
	default:
		if t.dropped.Add(1) == 1 {
			t.logger.Warn("usage queue full, dropping events", logging.Path(event.Path))
		}
	}
}

// Stop flushes queued events and stops the background writer. It is safe to
// call more than once.
func (t *Tracker) Stop() {
	t.once.Do(func() {
		close(t.stop)
		t.wg.Wait()
	})
}

// IsEnabled reports whether Track accepts events.
func (t *Tracker) IsEnabled() bool {
	return t.enabled
}

// Dropped returns how many events were discarded because the queue was full.
func (t *Tracker) Dropped() int64 { return t.dropped.Load() }

// Written returns how many events reached storage.
func (t *Tracker) Written() int64 { return t.written.Load() }

// Queued returns the number of events waiting to be written.
func (t *Tracker) Queued() int {
	return len(t.events)
}

func (t *Tracker) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]UsageEvent, 0, batchFlushSize)
	add := func(event UsageEvent) {
		batch = append(batch, event)
		if len(batch) >= batchFlushSize {
			t.flush(batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case event := <-t.events:
			add(event)
		case <-ticker.C:
			t.flush(batch)
			batch = batch[:0]
		case <-t.stop:
			for {
				select {
				case event := <-t.events:
					add(event)
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

func (t *Tracker) flush(events []UsageEvent) {
	for _, event := range events {
		if err := t.storage.RecordUsage(event.ToStorage()); err != nil {
			t.logger.Warn("failed to record file read", logging.Path(event.Path), logging.Err(err))
			continue
		}
		t.written.Add(1)
	}
}
