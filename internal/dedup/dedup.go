// Package dedup suppresses a reply when the same text was just posted to the
// same conversation thread, which happens when the event transport
// redelivers a mention.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultWindow is how long an identical reply to the same thread is held back.
const DefaultWindow = 10 * time.Second

// Suppressor decides whether a reply should be skipped. Every call records
// (channel, thread) -> (text, now), whatever the outcome.
type Suppressor interface {
	ShouldSuppress(ctx context.Context, channel, thread, text string, now time.Time) bool
}

type threadKey struct {
	channel string
	thread  string
}

type entry struct {
	text string
	at   time.Time
}

// Memory is a bounded, process-local Suppressor. Entries older than the
// window are ignored and eventually evicted; the least recently written
// thread is dropped once capacity is reached.
type Memory struct {
	mu      sync.Mutex
	window  time.Duration
	entries *expirable.LRU[threadKey, entry]
}

// NewMemory returns a Memory holding at most capacity threads. A thread
// evicted for capacity while still inside the window is no longer suppressed.
func NewMemory(capacity int, window time.Duration) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Memory{
		window: window,
		// eviction TTL must stay above the window
		entries: expirable.NewLRU[threadKey, entry](capacity, nil, 2*window),
	}
}

// ShouldSuppress reports true iff the previous reply recorded for the thread
// has identical text and was recorded less than the window before now.
func (m *Memory) ShouldSuppress(_ context.Context, channel, thread, text string, now time.Time) bool {
	key := threadKey{channel: channel, thread: thread}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.entries.Peek(key)
	suppress := ok && isDuplicate(prev, text, now, m.window)
	m.entries.Add(key, entry{text: text, at: now})
	return suppress
}

// Len is the number of threads currently tracked.
func (m *Memory) Len() int {
	return m.entries.Len()
}

func isDuplicate(prev entry, text string, now time.Time, window time.Duration) bool {
	return prev.text == text && now.Sub(prev.at) < window
}
