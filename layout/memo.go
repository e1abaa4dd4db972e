package layout

import "sync"

type memoKey struct {
	font          string
	text          string
	size          float64
	letterSpacing float64
}

type memoEntry struct {
	size     Size
	lastUsed uint64
}

// Memo caches the measurements of another Metrics. Entries are stamped with
// the cycle passed to the last Evict call; Evict drops entries unused for
// more than MaxAge cycles.
type Memo struct {
	next   Metrics
	MaxAge uint64

	mu      sync.Mutex
	now     uint64
	entries map[memoKey]*memoEntry
	hits    uint64
	misses  uint64
}

// Evictor is implemented by measurement caches that age their entries by an
// explicit cycle counter.
type Evictor interface {
	Evict(now uint64) int
}

var _ Evictor = (*Memo)(nil)

// NewMemo wraps m.
func NewMemo(m Metrics, maxAge uint64) *Memo {
	return &Memo{next: m, MaxAge: maxAge, entries: map[memoKey]*memoEntry{}}
}

func (m *Memo) MeasureLine(font, text string, size, letterSpacing float64) Size {
	k := memoKey{font: font, text: text, size: size, letterSpacing: letterSpacing}
	m.mu.Lock()
	if e, ok := m.entries[k]; ok {
		e.lastUsed = m.now
		m.hits++
		m.mu.Unlock()
		return e.size
	}
	m.misses++
	m.mu.Unlock()

	s := m.next.MeasureLine(font, text, size, letterSpacing)

	m.mu.Lock()
	m.entries[k] = &memoEntry{size: s, lastUsed: m.now}
	m.mu.Unlock()
	return s
}

// Evict advances the memo to cycle now and removes the entries last used
// before now-MaxAge. It returns the number of removed entries.
func (m *Memo) Evict(now uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	removed := 0
	for k, e := range m.entries {
		if e.lastUsed < now && now-e.lastUsed > m.MaxAge {
			delete(m.entries, k)
			removed++
		}
	}
	if removed > 0 {
		Logger().Debug("layout: memo evict", "cycle", now, "removed", removed, "left", len(m.entries))
	}
	return removed
}

// Len returns the number of cached measurements.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats returns the hit and miss counters.
func (m *Memo) Stats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}
