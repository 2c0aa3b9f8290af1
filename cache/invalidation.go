package cache

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
)

// Resource administratif yang dikenal layer invalidasi
const (
	ResourceNotifications   = "notifications"
	ResourceMessages        = "messages"
	ResourceContactRequests = "contact-requests"
	ResourceAnnouncements   = "announcements"
	ResourceUsers           = "users"
)

const overlayKey = "cache_invalidation_overlay"

// Request invalidasi, dibuat dan dikonsumsi dalam satu mutasi, tidak disimpan
type Request struct {
	Resource string
	RecordID *uint
	Extra    []string
}

// Tags -> tag resource + tag detail + tag halaman/layout untuk list dan detail view
func (r Request) Tags() []string {
	tags := []string{
		r.Resource,
		"page:/admin/" + r.Resource,
		"layout:/admin/" + r.Resource,
	}
	if r.RecordID != nil {
		tags = append(tags,
			fmt.Sprintf("%s:%d", r.Resource, *r.RecordID),
			fmt.Sprintf("page:/admin/%s/%d", r.Resource, *r.RecordID),
			fmt.Sprintf("layout:/admin/%s/%d", r.Resource, *r.RecordID),
		)
	}
	return append(tags, r.Extra...)
}

type memoEntry struct {
	version uint64
	value   interface{}
}

// Store memegang versi global per tag plus memo hasil render per tag.
// Bump versi = purge: pembaca berikutnya melihat memo basi dan reload.
type Store struct {
	mu       sync.RWMutex
	versions map[string]uint64
	memo     map[string]memoEntry
}

func NewStore() *Store {
	return &Store{
		versions: make(map[string]uint64),
		memo:     make(map[string]memoEntry),
	}
}

// Tags adalah store proses yang dipakai semua controller
var Tags = NewStore()

// Version -> versi global sebuah tag saat ini
func (s *Store) Version(tag string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[tag]
}

// Purge -> jalur asinkron yang selalu tersedia: bump versi sehingga semua
// pembaca (termasuk request lain) memuat ulang. Inilah jaminan correctness.
func (s *Store) Purge(tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		s.versions[tag]++
		delete(s.memo, tag)
	}
}

// markOverlay -> jalur immediate: tandai tag basi hanya untuk execution
// context ini (read-your-own-write). Tanpa context request, diam-diam dilewati;
// itu bukan error karena jalur purge asinkron tetap jalan.
func markOverlay(c *gin.Context, tags []string) {
	if c == nil {
		return
	}
	var overlay map[string]bool
	if v, ok := c.Get(overlayKey); ok {
		overlay, _ = v.(map[string]bool)
	}
	if overlay == nil {
		overlay = make(map[string]bool)
		c.Set(overlayKey, overlay)
	}
	for _, tag := range tags {
		overlay[tag] = true
	}
}

func overlayStale(c *gin.Context, tag string) bool {
	if c == nil {
		return false
	}
	v, ok := c.Get(overlayKey)
	if !ok {
		return false
	}
	overlay, _ := v.(map[string]bool)
	return overlay[tag]
}

// Invalidate -> dipanggil setelah mutasi administratif selesai.
// Immediate path update context sekarang juga; purge global berjalan asinkron
// tanpa batas latensi ketat.
func (s *Store) Invalidate(c *gin.Context, req Request) {
	tags := req.Tags()
	markOverlay(c, tags)
	go s.Purge(tags...)
}

// InvalidateBulk -> varian tanpa record id untuk operasi banyak baris
func (s *Store) InvalidateBulk(c *gin.Context, resource string, extra ...string) {
	s.Invalidate(c, Request{Resource: resource, Extra: extra})
}

// Fetch -> baca lewat memo per tag. Reload jika tag ditandai basi di context
// ini, belum pernah dirender, atau versinya sudah di-purge.
func (s *Store) Fetch(c *gin.Context, tag string, loader func() (interface{}, error)) (interface{}, error) {
	current := s.Version(tag)

	if !overlayStale(c, tag) {
		s.mu.RLock()
		entry, ok := s.memo[tag]
		s.mu.RUnlock()
		if ok && entry.version == current {
			return entry.value, nil
		}
	}

	value, err := loader()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.memo[tag] = memoEntry{version: current, value: value}
	s.mu.Unlock()
	return value, nil
}
