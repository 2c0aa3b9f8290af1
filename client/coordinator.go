// Package client berisi koordinator sisi pemakai untuk tool internal
// (dashboard operator, CLI monitoring) yang perlu badge counter yang benar
// baik dengan push websocket maupun fallback polling.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/andikamaulana/portal-sekolah/realtime"
	"github.com/andikamaulana/portal-sekolah/services"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// SnapshotFetcher -> ambil snapshot unread dari aggregator otoritatif
type SnapshotFetcher func(ctx context.Context, userID uint) (services.UnreadSnapshot, error)

// Coordinator menjaga counter satu user tetap benar.
// Event push tidak dipakai untuk hitung-hitungan lokal: setiap event hanya
// membuat snapshot basi sehingga refetch menghasilkan komposisi otoritatif.
type Coordinator struct {
	userID       uint
	fetch        SnapshotFetcher
	pollInterval time.Duration

	mu       sync.Mutex
	snapshot *services.UnreadSnapshot
	stale    bool
	pollStop chan struct{}

	conn *websocket.Conn
	log  *logrus.Logger
}

func NewCoordinator(userID uint, fetch SnapshotFetcher, pollInterval time.Duration) *Coordinator {
	return &Coordinator{
		userID:       userID,
		fetch:        fetch,
		pollInterval: pollInterval,
		stale:        true,
		log:          logrus.New(),
	}
}

// Start -> fetch awal + mulai polling. Polling berhenti sendiri kalau push
// dinyatakan otoritatif lewat SetPushAuthoritative(true).
func (co *Coordinator) Start(ctx context.Context) error {
	if err := co.Refresh(ctx); err != nil {
		return err
	}
	co.SetPushAuthoritative(false)
	return nil
}

// Stop -> matikan polling dan koneksi push
func (co *Coordinator) Stop() {
	co.mu.Lock()
	if co.pollStop != nil {
		close(co.pollStop)
		co.pollStop = nil
	}
	conn := co.conn
	co.conn = nil
	co.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Snapshot -> nilai terakhir; refetch dulu kalau basi atau belum pernah ambil
func (co *Coordinator) Snapshot(ctx context.Context) (services.UnreadSnapshot, error) {
	co.mu.Lock()
	if !co.stale && co.snapshot != nil {
		snap := *co.snapshot
		co.mu.Unlock()
		return snap, nil
	}
	co.mu.Unlock()

	if err := co.Refresh(ctx); err != nil {
		return services.UnreadSnapshot{}, err
	}

	co.mu.Lock()
	defer co.mu.Unlock()
	return *co.snapshot, nil
}

// Refresh -> paksa satu refetch dari aggregator
func (co *Coordinator) Refresh(ctx context.Context) error {
	snap, err := co.fetch(ctx, co.userID)
	if err != nil {
		return err
	}

	co.mu.Lock()
	co.snapshot = &snap
	co.stale = false
	co.mu.Unlock()
	return nil
}

// Invalidate -> tandai snapshot basi tanpa menghitung ulang di sisi client
func (co *Coordinator) Invalidate() {
	co.mu.Lock()
	co.stale = true
	co.mu.Unlock()
}

// SetPushAuthoritative -> true mematikan polling (push yang pegang kendali),
// false menyalakannya lagi. Ticker lama selalu dibereskan, tidak ada yang bocor.
func (co *Coordinator) SetPushAuthoritative(authoritative bool) {
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.pollStop != nil {
		close(co.pollStop)
		co.pollStop = nil
	}
	if authoritative || co.pollInterval <= 0 {
		return
	}

	stop := make(chan struct{})
	co.pollStop = stop
	go co.pollLoop(stop)
}

func (co *Coordinator) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(co.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := co.Refresh(context.Background()); err != nil {
				co.log.Warnf("poll refresh failed: %v", err)
			}
		case <-stop:
			return
		}
	}
}

// Connect -> buka koneksi push dan dengarkan event domain.
// Begitu tersambung polling dimatikan dan satu refetch dipaksa untuk menutup
// jendela event yang terlewat saat putus. Saat koneksi mati, polling nyala lagi.
func (co *Coordinator) Connect(ctx context.Context, wsURL string, header http.Header) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return err
	}

	co.mu.Lock()
	co.conn = conn
	co.mu.Unlock()

	co.SetPushAuthoritative(true)
	if err := co.Refresh(ctx); err != nil {
		co.log.Warnf("refresh after connect failed: %v", err)
	}

	go co.readLoop(conn)
	return nil
}

func (co *Coordinator) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		co.mu.Lock()
		if co.conn == conn {
			co.conn = nil
		}
		co.mu.Unlock()
		// Push hilang: kembali ke polling sampai reconnect
		co.SetPushAuthoritative(false)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			co.log.Warnf("bad push payload: %v", err)
			continue
		}
		co.handleEvent(env.Event)
	}
}

func (co *Coordinator) handleEvent(event string) {
	switch event {
	case realtime.EventMessageNew, realtime.EventMessageUpdated,
		realtime.EventNotificationNew, realtime.EventNotificationUpdated,
		realtime.EventContactRequest:
		co.Invalidate()
	}
}
