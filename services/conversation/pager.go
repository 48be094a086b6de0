package conversation

import (
	"sync"
	"time"
)

// ScrollEvent describes the viewport of a thread rendered newest first.
type ScrollEvent struct {
	// LastVisible is the index of the oldest message currently on screen.
	LastVisible int
	// Loaded is the number of messages in the list.
	Loaded int
	// UserScroll is false for layout and size-change notifications.
	UserScroll bool
}

// Pager decides when scrolling should load the next page of history.
type Pager struct {
	mu        sync.Mutex
	proximity int
	cooldown  time.Duration
	now       func() time.Time
	lastFetch time.Time
}

func NewPager(proximity int, cooldown time.Duration) *Pager {
	if proximity < 0 {
		proximity = 0
	}
	return &Pager{proximity: proximity, cooldown: cooldown, now: time.Now}
}

// ShouldFetch reports whether ev warrants a fetch and, if so, starts the cooldown window.
func (p *Pager) ShouldFetch(ev ScrollEvent, hasMore, inFlight bool) bool {
	if !ev.UserScroll || !hasMore || inFlight || ev.Loaded == 0 {
		return false
	}
	if ev.Loaded-1-ev.LastVisible > p.proximity {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if !p.lastFetch.IsZero() && now.Sub(p.lastFetch) < p.cooldown {
		return false
	}
	p.lastFetch = now
	return true
}

// Reset clears the cooldown, used when switching conversations.
func (p *Pager) Reset() {
	p.mu.Lock()
	p.lastFetch = time.Time{}
	p.mu.Unlock()
}
