package controllers

import (
	"net/http"
	"time"

	"github.com/andikamaulana/portal-sekolah/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Sesuaikan dengan kebutuhan keamanan
	},
}

// WSHandler -> endpoint WebSocket portal.
// Server dibuat lazy di sini; request pertama yang balapan tetap konvergen
// ke satu instance lewat registry.
func WSHandler(c *gin.Context) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	userID, ok := userIDInterface.(uint)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	server, err := realtime.EnsureServer(realtime.ConfigFromEnv())
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	connID := server.Register(ws, userID)

	// Replay event dalam recovery window supaya reconnect tidak kehilangan
	// apa yang terjadi saat koneksi putus. Hanya ke koneksi ini, tab lain
	// milik user yang sama sudah menerima saat live. Di luar window client
	// wajib refetch.
	cutoff := time.Now().Add(-server.Config().RecoveryWindow).UnixMilli()
	for _, ev := range realtime.Cache.Recent(userID, realtime.CacheLimit) {
		if ev.CreatedAt >= cutoff && !ev.IsRead {
			if err := server.SendTo(connID, realtime.EventNotificationNew, ev); err != nil {
				break
			}
		}
	}

	// Baca pesan sampai client putus
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	server.Unregister(connID)
}
