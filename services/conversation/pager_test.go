package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPager(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPager(5, time.Second)
	p.now = func() time.Time { return now }

	near := ScrollEvent{LastVisible: 15, Loaded: 20, UserScroll: true}
	far := ScrollEvent{LastVisible: 10, Loaded: 20, UserScroll: true}
	layout := ScrollEvent{LastVisible: 19, Loaded: 20, UserScroll: false}

	assert.False(t, p.ShouldFetch(far, true, false), "too far from the oldest message")
	assert.False(t, p.ShouldFetch(layout, true, false), "layout events never fetch")
	assert.False(t, p.ShouldFetch(near, false, false), "no more pages")
	assert.False(t, p.ShouldFetch(near, true, true), "fetch already in flight")

	assert.True(t, p.ShouldFetch(near, true, false))
	assert.False(t, p.ShouldFetch(near, true, false), "cooldown")

	now = now.Add(999 * time.Millisecond)
	assert.False(t, p.ShouldFetch(near, true, false))
	now = now.Add(time.Millisecond)
	assert.True(t, p.ShouldFetch(near, true, false))

	p.Reset()
	assert.True(t, p.ShouldFetch(near, true, false))
	assert.False(t, p.ShouldFetch(ScrollEvent{UserScroll: true}, true, false), "empty list")
}
