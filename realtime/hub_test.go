package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

// dialConn -> buka satu koneksi websocket asli ke server hub via httptest,
// return sisi client plus connection id hasil Register
func dialConn(t *testing.T, s *Server, userID uint) (*websocket.Conn, string) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	connIDCh := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connIDCh <- s.Register(ws, userID)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, <-connIDCh
}

func TestConnectionBookkeeping(t *testing.T) {
	s, err := newServer(DefaultConfig())
	assert.NoError(t, err)

	assert.Equal(t, 0, s.ClientCount())
	assert.False(t, s.IsUserOnline(7))

	_, connID := dialConn(t, s, 7)

	gotUser, ok := s.UserID(connID)
	assert.True(t, ok)
	assert.Equal(t, uint(7), gotUser)
	assert.Equal(t, 1, s.ClientCount())
	assert.True(t, s.IsUserOnline(7))
	assert.False(t, s.IsUserOnline(8))

	s.Unregister(connID)
	_, ok = s.UserID(connID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.ClientCount())
	assert.False(t, s.IsUserOnline(7))
}

func TestSendToOnlyReachesOneConnection(t *testing.T) {
	s, err := newServer(DefaultConfig())
	assert.NoError(t, err)

	// Dua tab milik user yang sama
	clientA, connA := dialConn(t, s, 7)
	clientB, _ := dialConn(t, s, 7)

	assert.NoError(t, s.SendTo(connA, EventNotificationNew, map[string]string{"title": "replay"}))

	clientA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := clientA.ReadMessage()
	assert.NoError(t, err)
	assert.Contains(t, string(data), EventNotificationNew)

	// Tab lain tidak ikut menerima
	clientB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = clientB.ReadMessage()
	assert.Error(t, err)

	// Koneksi yang sudah tidak terdaftar ditolak
	s.Unregister(connA)
	assert.Error(t, s.SendTo(connA, EventNotificationNew, nil))
}

func TestBroadcastReachesAllUsers(t *testing.T) {
	s, err := newServer(DefaultConfig())
	assert.NoError(t, err)

	clientA, _ := dialConn(t, s, 7)
	clientB, _ := dialConn(t, s, 8)

	s.Broadcast(EventNotificationNew, map[string]string{"title": "pengumuman"})

	for _, client := range []*websocket.Conn{clientA, clientB} {
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := client.ReadMessage()
		assert.NoError(t, err)
		assert.Contains(t, string(data), "pengumuman")
	}
}
