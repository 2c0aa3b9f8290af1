package realtime

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry hidup selama proses berjalan: satu instance Server per proses,
// dibuat lazy pada request pertama yang membutuhkannya.
// Lifecycle: absent -> initializing -> ready. Kembali ke absent hanya jika
// konstruksi gagal; initializing dibagi lewat singleflight sehingga semua
// caller pertama yang balapan menerima instance yang sama.
var (
	registryMu sync.RWMutex
	server     *Server

	initGroup singleflight.Group
)

// GetServer -> pure read, nil jika belum ada server
func GetServer() *Server {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return server
}

// EnsureServer -> buat server sekali, atau rekonsiliasi drift konfigurasi
// pada instance yang sudah ada. Tidak pernah menghasilkan instance ganda.
func EnsureServer(cfg Config) (*Server, error) {
	if s := GetServer(); s != nil {
		s.reconcile(cfg)
		return s, nil
	}

	v, err, _ := initGroup.Do("server", func() (interface{}, error) {
		// Cek ulang di dalam flight: caller lain mungkin sudah selesai
		if s := GetServer(); s != nil {
			return s, nil
		}
		s, err := newServer(cfg)
		if err != nil {
			// Gagal konstruksi: registry tetap absent, call berikutnya retry
			return nil, err
		}
		registryMu.Lock()
		server = s
		registryMu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	s := v.(*Server)
	s.reconcile(cfg)
	return s, nil
}

// resetRegistry dipakai test untuk kembali ke state absent
func resetRegistry() {
	registryMu.Lock()
	server = nil
	registryMu.Unlock()
}
