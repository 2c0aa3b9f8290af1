package realtime

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event types yang dikirim ke client
const (
	EventMessageNew          = "message:new"
	EventMessageUpdated      = "message:updated"
	EventNotificationNew     = "notification:new"
	EventNotificationUpdated = "notification:updated"
	EventContactRequest      = "contact_request:changed"
)

type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type clientConn struct {
	id      string
	userID  uint
	ws      *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
}

func (cc *clientConn) write(messageType int, data []byte) error {
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()
	return cc.ws.WriteMessage(messageType, data)
}

// Server menampung semua koneksi websocket portal dan map conn id -> user id.
// Semua akses map disinkronisasi internal, caller tidak perlu lock sendiri.
type Server struct {
	mu      sync.RWMutex
	cfg     Config
	clients map[string]*clientConn
	byUser  map[uint]map[string]*clientConn
}

func newServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		clients: make(map[string]*clientConn),
		byUser:  make(map[uint]map[string]*clientConn),
	}, nil
}

// Config -> snapshot konfigurasi transport yang sedang aktif
func (s *Server) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// reconcile -> terapkan drift konfigurasi in-place, instance tidak pernah diganti.
// Hanya knob transport yang bisa berubah; koneksi aktif ikut disesuaikan.
func (s *Server) reconcile(cfg Config) {
	if err := cfg.validate(); err != nil {
		log.Printf("Ignoring invalid transport config drift: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == cfg {
		return
	}
	s.cfg = cfg
	for _, cc := range s.clients {
		cc.ws.SetReadLimit(cfg.MaxPayloadBytes)
	}
}

// Register -> daftarkan koneksi untuk satu user, return connection id.
// Ping loop per koneksi berjalan sampai Unregister.
func (s *Server) Register(ws *websocket.Conn, userID uint) string {
	s.mu.Lock()
	cfg := s.cfg
	cc := &clientConn{
		id:     uuid.NewString(),
		userID: userID,
		ws:     ws,
		done:   make(chan struct{}),
	}
	s.clients[cc.id] = cc
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[string]*clientConn)
	}
	s.byUser[userID][cc.id] = cc
	s.mu.Unlock()

	ws.SetReadLimit(cfg.MaxPayloadBytes)
	pongWait := cfg.PingInterval * 2
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.pingLoop(cc, cfg.PingInterval)

	return cc.id
}

// Unregister -> lepaskan koneksi dan tutup socket
func (s *Server) Unregister(connID string) {
	s.mu.Lock()
	cc, ok := s.clients[connID]
	if ok {
		delete(s.clients, connID)
		if conns := s.byUser[cc.userID]; conns != nil {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(s.byUser, cc.userID)
			}
		}
	}
	s.mu.Unlock()

	if ok {
		close(cc.done)
		cc.ws.Close()
	}
}

// UserID -> lookup user pemilik sebuah connection id
func (s *Server) UserID(connID string) (uint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cc, ok := s.clients[connID]
	if !ok {
		return 0, false
	}
	return cc.userID, true
}

// ClientCount -> jumlah koneksi aktif
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// IsUserOnline -> true jika user punya minimal satu koneksi hidup
func (s *Server) IsUserOnline(userID uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser[userID]) > 0
}

// SendTo -> kirim satu event hanya ke satu koneksi (dipakai replay saat
// reconnect; tab lain milik user yang sama tidak ikut menerima ulang)
func (s *Server) SendTo(connID string, event string, payload interface{}) error {
	s.mu.RLock()
	cc, ok := s.clients[connID]
	s.mu.RUnlock()
	if !ok {
		return errors.New("connection not found: " + connID)
	}

	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	return cc.write(websocket.TextMessage, data)
}

// BroadcastToUser -> kirim satu event ke semua koneksi milik user tersebut.
// Error per koneksi hanya dilog, pengiriman best-effort (at-least-once,
// client melakukan refetch idempoten).
func (s *Server) BroadcastToUser(userID uint, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Printf("Error marshaling event %s: %v", event, err)
		return
	}

	s.mu.RLock()
	conns := make([]*clientConn, 0, len(s.byUser[userID]))
	for _, cc := range s.byUser[userID] {
		conns = append(conns, cc)
	}
	s.mu.RUnlock()

	for _, cc := range conns {
		if err := cc.write(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending %s to user %d: %v", event, userID, err)
		}
	}
}

// Broadcast -> kirim event ke semua koneksi (dipakai pengumuman global)
func (s *Server) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Printf("Error marshaling event %s: %v", event, err)
		return
	}

	s.mu.RLock()
	conns := make([]*clientConn, 0, len(s.clients))
	for _, cc := range s.clients {
		conns = append(conns, cc)
	}
	s.mu.RUnlock()

	for _, cc := range conns {
		if err := cc.write(websocket.TextMessage, data); err != nil {
			log.Printf("Error broadcasting %s: %v", event, err)
		}
	}
}

func (s *Server) pingLoop(cc *clientConn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := cc.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cc.done:
			return
		}
	}
}
