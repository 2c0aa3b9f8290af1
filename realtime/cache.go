package realtime

import (
	"encoding/json"
	"sync"

	"github.com/andikamaulana/portal-sekolah/models"
)

// CacheLimit -> maksimal event yang disimpan per user.
// Cache hanya jendela recency best-effort; riwayat lengkap tetap di database.
const CacheLimit = 50

// Event adalah satu notifikasi yang dikirim (atau siap dikirim) ke client.
// Setelah dibuat hanya IsRead dan Metadata yang boleh berubah.
type Event struct {
	ID          uint              `json:"id"`
	Kind        string            `json:"kind"`
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	FromUserID  *uint             `json:"from_user_id,omitempty"`
	UserID      uint              `json:"user_id"`
	MessageID   *uint             `json:"message_id,omitempty"`
	CreatedAt   int64             `json:"created_at"` // epoch millis
	IsRead      bool              `json:"is_read"`
	ActionURL   *string           `json:"action_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// EventFromNotification -> konversi row database ke event realtime
func EventFromNotification(n models.Notification) *Event {
	ev := &Event{
		ID:          n.ID,
		Kind:        n.Kind,
		Title:       n.Title,
		Description: n.Description,
		FromUserID:  n.FromUserID,
		UserID:      n.UserID,
		MessageID:   n.MessageID,
		CreatedAt:   n.CreatedAt.UnixMilli(),
		IsRead:      n.IsRead,
		ActionURL:   n.ActionURL,
	}
	if n.Metadata != nil {
		// Metadata opaque, gagal decode cukup diabaikan
		var meta map[string]string
		if err := json.Unmarshal([]byte(*n.Metadata), &meta); err == nil {
			ev.Metadata = meta
		}
	}
	return ev
}

type userCache struct {
	mu     sync.Mutex
	events []*Event // terbaru di depan
}

// NotificationCache menyimpan event terbaru per user, dibatasi CacheLimit.
// Lock per user: operasi pada satu user tidak memblokir user lain.
type NotificationCache struct {
	mu    sync.RWMutex
	users map[uint]*userCache
}

func NewNotificationCache() *NotificationCache {
	return &NotificationCache{users: make(map[uint]*userCache)}
}

// Cache adalah instance proses, dipakai hub dan change monitor
var Cache = NewNotificationCache()

func (nc *NotificationCache) shard(userID uint, create bool) *userCache {
	nc.mu.RLock()
	uc := nc.users[userID]
	nc.mu.RUnlock()
	if uc != nil || !create {
		return uc
	}

	nc.mu.Lock()
	defer nc.mu.Unlock()
	if uc = nc.users[userID]; uc == nil {
		uc = &userCache{}
		nc.users[userID] = uc
	}
	return uc
}

// Store -> prepend event, buang ekor jika melebihi batas.
// Idempoten terhadap ID: pengiriman ulang (at-least-once) tidak menggandakan entry.
func (nc *NotificationCache) Store(userID uint, ev *Event) {
	uc := nc.shard(userID, true)
	uc.mu.Lock()
	defer uc.mu.Unlock()

	for i, existing := range uc.events {
		if existing.ID == ev.ID {
			uc.events = append(uc.events[:i], uc.events[i+1:]...)
			break
		}
	}

	uc.events = append([]*Event{ev}, uc.events...)
	if len(uc.events) > CacheLimit {
		uc.events = uc.events[:CacheLimit]
	}
}

// Update -> cari event milik user itu saja dan mutasi in-place.
// Return event hasil mutasi, atau false jika tidak ditemukan.
func (nc *NotificationCache) Update(userID uint, eventID uint, mutator func(*Event)) (*Event, bool) {
	uc := nc.shard(userID, false)
	if uc == nil {
		return nil, false
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	for _, ev := range uc.events {
		if ev.ID == eventID {
			mutator(ev)
			return ev, true
		}
	}
	return nil, false
}

// Remove -> splice event keluar dari cache user
func (nc *NotificationCache) Remove(userID uint, eventID uint) bool {
	uc := nc.shard(userID, false)
	if uc == nil {
		return false
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	for i, ev := range uc.events {
		if ev.ID == eventID {
			uc.events = append(uc.events[:i], uc.events[i+1:]...)
			return true
		}
	}
	return false
}

// Clear -> kosongkan cache satu user (dipakai bulk clear)
func (nc *NotificationCache) Clear(userID uint) {
	uc := nc.shard(userID, false)
	if uc == nil {
		return
	}
	uc.mu.Lock()
	uc.events = nil
	uc.mu.Unlock()
}

// Recent -> salinan event terbaru, maksimal limit
func (nc *NotificationCache) Recent(userID uint, limit int) []*Event {
	uc := nc.shard(userID, false)
	if uc == nil {
		return nil
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if limit <= 0 || limit > len(uc.events) {
		limit = len(uc.events)
	}
	out := make([]*Event, limit)
	copy(out, uc.events[:limit])
	return out
}

// Len -> jumlah event yang sedang di-cache untuk user
func (nc *NotificationCache) Len(userID uint) int {
	uc := nc.shard(userID, false)
	if uc == nil {
		return 0
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.events)
}
