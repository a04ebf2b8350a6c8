package brackets

import (
	"sync"
	"time"

	"github.com/courtside/bracket-engine/models"
)

// DefaultRefetchDebounce is how long a viewer cache waits before refetching
// after a patch reveals a newly decided entrant.
const DefaultRefetchDebounce = 500 * time.Millisecond

// RefetchFunc is invoked (on its own goroutine) when the cache wants a full
// reload. The sequence number must be passed back to ApplyRefetch so late
// responses can be told apart from current ones.
type RefetchFunc func(seq uint64)

// MatchCache is the viewer-side reconciliation cache behind a bracket
// subscription. Events patch rows by id, which tolerates duplicate and
// out-of-order delivery. When a patch fills a team slot the viewer is
// missing display metadata for the new entrant, so the cache schedules one
// coalesced refetch; responses are guarded by a monotonically increasing
// sequence so a stale refetch can never overwrite a newer one.
type MatchCache struct {
	mu       sync.Mutex
	matches  map[int]*models.BracketMatch
	refetch  RefetchFunc
	debounce time.Duration

	timer      *time.Timer
	nextSeq    uint64
	appliedSeq uint64
}

func NewMatchCache(debounce time.Duration, refetch RefetchFunc) *MatchCache {
	if debounce <= 0 {
		debounce = DefaultRefetchDebounce
	}
	return &MatchCache{
		matches:  make(map[int]*models.BracketMatch),
		refetch:  refetch,
		debounce: debounce,
	}
}

// Apply patches the cache with one event row. Applying the same row twice
// is a no-op beyond the replace itself.
func (c *MatchCache) Apply(m *models.BracketMatch) {
	if m == nil {
		return
	}
	c.mu.Lock()
	prev := c.matches[m.ID]
	c.matches[m.ID] = m

	if slotNewlyFilled(prev, m) && c.refetch != nil && c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.fireRefetch)
	}
	c.mu.Unlock()
}

func (c *MatchCache) fireRefetch() {
	c.mu.Lock()
	c.timer = nil
	c.nextSeq++
	seq := c.nextSeq
	refetch := c.refetch
	c.mu.Unlock()

	refetch(seq)
}

// ApplyRefetch replaces the whole cache with a refetch response. Returns
// false when the response is stale (an equal or newer one already applied)
// and was discarded.
func (c *MatchCache) ApplyRefetch(seq uint64, rows []*models.BracketMatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.appliedSeq {
		return false
	}
	c.appliedSeq = seq

	c.matches = make(map[int]*models.BracketMatch, len(rows))
	for _, m := range rows {
		if m != nil {
			c.matches[m.ID] = m
		}
	}
	return true
}

// Get returns the cached row for a match id.
func (c *MatchCache) Get(id int) (*models.BracketMatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.matches[id]
	return m, ok
}

// Len returns the number of cached rows.
func (c *MatchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matches)
}

// slotNewlyFilled reports whether the patch changed a team slot from
// unknown to a concrete entry.
func slotNewlyFilled(prev, next *models.BracketMatch) bool {
	if next.Team1EntryID == nil && next.Team2EntryID == nil {
		return false
	}
	if prev == nil {
		return next.Team1EntryID != nil || next.Team2EntryID != nil
	}
	if prev.Team1EntryID == nil && next.Team1EntryID != nil {
		return true
	}
	if prev.Team2EntryID == nil && next.Team2EntryID != nil {
		return true
	}
	return false
}
