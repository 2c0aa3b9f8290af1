package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newEvent(id uint, userID uint) *Event {
	return &Event{
		ID:        id,
		Kind:      "info",
		Title:     "Test",
		UserID:    userID,
		CreatedAt: time.Now().UnixMilli(),
	}
}

func TestCacheNeverExceedsLimit(t *testing.T) {
	nc := NewNotificationCache()

	for i := 1; i <= 120; i++ {
		nc.Store(7, newEvent(uint(i), 7))
	}

	assert.Equal(t, CacheLimit, nc.Len(7))

	// Ring buffer: yang terbaru selalu selamat, yang tertua tergusur
	recent := nc.Recent(7, CacheLimit)
	assert.Equal(t, uint(120), recent[0].ID)
	assert.Equal(t, uint(120-CacheLimit+1), recent[len(recent)-1].ID)
}

func TestCacheStoreIdempotent(t *testing.T) {
	nc := NewNotificationCache()

	nc.Store(1, newEvent(10, 1))
	nc.Store(1, newEvent(11, 1))
	// Pengiriman ulang event yang sama tidak menggandakan entry
	nc.Store(1, newEvent(10, 1))

	assert.Equal(t, 2, nc.Len(1))
	assert.Equal(t, uint(10), nc.Recent(1, 1)[0].ID)
}

func TestCacheUpdateScopedPerUser(t *testing.T) {
	nc := NewNotificationCache()

	nc.Store(1, newEvent(100, 1))
	nc.Store(2, newEvent(200, 2))

	ev, found := nc.Update(1, 100, func(e *Event) { e.IsRead = true })
	assert.True(t, found)
	assert.True(t, ev.IsRead)

	// Event user lain tidak pernah tersentuh lewat user id yang salah
	_, found = nc.Update(1, 200, func(e *Event) { e.IsRead = true })
	assert.False(t, found)
	assert.False(t, nc.Recent(2, 1)[0].IsRead)
}

func TestCacheUpdateNotFound(t *testing.T) {
	nc := NewNotificationCache()
	nc.Store(1, newEvent(1, 1))

	ev, found := nc.Update(1, 999, func(e *Event) { e.IsRead = true })
	assert.False(t, found)
	assert.Nil(t, ev)

	// Tidak ada mutasi apa pun
	assert.False(t, nc.Recent(1, 1)[0].IsRead)
}

func TestCacheRemove(t *testing.T) {
	nc := NewNotificationCache()
	nc.Store(1, newEvent(1, 1))
	nc.Store(1, newEvent(2, 1))

	assert.True(t, nc.Remove(1, 1))
	assert.False(t, nc.Remove(1, 1))
	assert.Equal(t, 1, nc.Len(1))
}

func TestCacheClear(t *testing.T) {
	nc := NewNotificationCache()
	nc.Store(1, newEvent(1, 1))
	nc.Store(2, newEvent(2, 2))

	nc.Clear(1)

	assert.Equal(t, 0, nc.Len(1))
	assert.Equal(t, 1, nc.Len(2))
}

func TestCacheConcurrentUsers(t *testing.T) {
	nc := NewNotificationCache()

	var wg sync.WaitGroup
	for u := uint(1); u <= 8; u++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			for i := 1; i <= 200; i++ {
				nc.Store(userID, newEvent(uint(i), userID))
			}
		}(u)
	}
	wg.Wait()

	for u := uint(1); u <= 8; u++ {
		assert.Equal(t, CacheLimit, nc.Len(u))
	}
}
