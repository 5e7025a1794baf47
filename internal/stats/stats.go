// Package stats accumulates session counters for the poll loop and reports
// them when the process shuts down.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/ravoegtlin/molbox-tester/internal/errors"
	"github.com/ravoegtlin/molbox-tester/internal/logger"
)

// Tracker counts session activity. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	startedAt time.Time
	connects  uint64
	sent      uint64
	received  uint64
	failures  map[errors.ErrorCode]uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Uptime   time.Duration
	Connects uint64
	Sent     uint64
	Received uint64
	Failures map[errors.ErrorCode]uint64
}

func New() *Tracker {
	return &Tracker{
		startedAt: time.Now(),
		failures:  make(map[errors.ErrorCode]uint64),
	}
}

func (t *Tracker) RecordConnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
}

func (t *Tracker) RecordSent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent++
}

func (t *Tracker) RecordReceived() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.received++
}

// RecordFailure counts one failure under its error code.
func (t *Tracker) RecordFailure(code errors.ErrorCode) {
	if code == "" {
		code = "unclassified"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[code]++
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	failures := make(map[errors.ErrorCode]uint64, len(t.failures))
	for code, n := range t.failures {
		failures[code] = n
	}

	return Snapshot{
		Uptime:   time.Since(t.startedAt),
		Connects: t.connects,
		Sent:     t.sent,
		Received: t.received,
		Failures: failures,
	}
}

// TotalFailures sums the per-code failure counts.
func (s Snapshot) TotalFailures() uint64 {
	var total uint64
	for _, n := range s.Failures {
		total += n
	}

	return total
}

// LogSummary writes the session counters through the process logger.
func (t *Tracker) LogSummary() {
	s := t.Snapshot()

	event := logger.Info().
		Str("uptime", s.Uptime.Round(time.Second).String()).
		Uint64("connects", s.Connects).
		Uint64("sent", s.Sent).
		Uint64("received", s.Received).
		Uint64("failures", s.TotalFailures())

	codes := make([]string, 0, len(s.Failures))
	for code := range s.Failures {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	for _, code := range codes {
		event = event.Uint64(code, s.Failures[errors.ErrorCode(code)])
	}

	event.Msg("Session summary")
}
