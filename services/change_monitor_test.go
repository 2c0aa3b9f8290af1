package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/realtime"
	"github.com/andikamaulana/portal-sekolah/utils"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMonitorTestDB(t *testing.T) *gorm.DB {
	utils.InitLogger()

	// Monitor membaca lewat dua koneksi sekaligus (transaction + lookup row),
	// jadi pakai in-memory database bernama yang dishare antar koneksi,
	// bukan :memory: satu koneksi seperti test lain
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.Message{},
		&models.ContactRequest{},
		&models.DBChange{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// attachClient -> koneksi websocket asli yang terdaftar di server global,
// dipakai untuk mengamati apa yang benar-benar sampai ke satu user
func attachClient(t *testing.T, userID uint) *websocket.Conn {
	t.Helper()

	server, err := realtime.EnsureServer(realtime.DefaultConfig())
	if err != nil {
		t.Fatalf("ensure server failed: %v", err)
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	registered := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		registered <- server.Register(ws, userID)
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
	connID := <-registered
	t.Cleanup(func() {
		server.Unregister(connID)
		client.Close()
	})

	return client
}

func TestChangeMonitorContactRequestReachesAdmins(t *testing.T) {
	db := setupMonitorTestDB(t)

	admin := models.User{Name: "Admin", Email: "admin-monitor@sekolah.id", Password: "secret", Role: "admin"}
	parent := models.User{Name: "Parent", Email: "parent-monitor@sekolah.id", Password: "secret", Role: "parent"}
	db.Create(&admin)
	db.Create(&parent)

	req := models.ContactRequest{Name: "Wali", Email: "wali@mail.id", Body: "impor batch", Status: models.ContactStatusPending}
	db.Create(&req)
	// Baris db_changes seperti yang ditulis trigger untuk mutasi out-of-band
	db.Create(&models.DBChange{TableName: "contact_requests", RecordID: int64(req.ID), ActionType: "INSERT", ChangedAt: time.Now()})

	adminConn := attachClient(t, admin.ID)
	parentConn := attachClient(t, parent.ID)

	cm := NewChangeMonitor(db)
	cm.checkChanges()

	adminConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := adminConn.ReadMessage()
	assert.NoError(t, err)
	assert.Contains(t, string(data), realtime.EventContactRequest)

	// Parent tidak ikut menerima sinyal pending admin
	parentConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = parentConn.ReadMessage()
	assert.Error(t, err)

	var change models.DBChange
	db.First(&change)
	assert.True(t, change.Processed)
}

func TestChangeMonitorContactRequestCreatesNoNotificationRows(t *testing.T) {
	db := setupMonitorTestDB(t)

	admin := models.User{Name: "Admin", Email: "admin-rows@sekolah.id", Password: "secret", Role: "admin"}
	db.Create(&admin)

	req := models.ContactRequest{Name: "Wali", Email: "wali@mail.id", Body: "satu", Status: models.ContactStatusPending}
	db.Create(&req)
	db.Create(&models.DBChange{TableName: "contact_requests", RecordID: int64(req.ID), ActionType: "INSERT", ChangedAt: time.Now()})

	cm := NewChangeMonitor(db)
	// Dua tick: redelivery tidak boleh menggandakan apa pun di database
	cm.checkChanges()
	db.Model(&models.DBChange{}).Where("id > ?", 0).Update("processed", false)
	cm.checkChanges()

	var notifRows int64
	db.Model(&models.Notification{}).Count(&notifRows)
	assert.Equal(t, int64(0), notifRows)
}

func TestChangeMonitorNotificationInsertFillsCache(t *testing.T) {
	db := setupMonitorTestDB(t)

	user := models.User{Name: "Guru", Email: "guru-monitor@sekolah.id", Password: "secret", Role: "teacher"}
	db.Create(&user)
	realtime.Cache.Clear(user.ID)

	notif := models.Notification{Kind: models.NotifKindSystem, Title: "Maintenance malam ini", UserID: user.ID}
	db.Create(&notif)
	db.Create(&models.DBChange{TableName: "notifications", RecordID: int64(notif.ID), ActionType: "INSERT", ChangedAt: time.Now()})

	cm := NewChangeMonitor(db)
	cm.checkChanges()

	recent := realtime.Cache.Recent(user.ID, realtime.CacheLimit)
	if assert.Len(t, recent, 1) {
		assert.Equal(t, notif.ID, recent[0].ID)
		assert.Equal(t, "Maintenance malam ini", recent[0].Title)
	}
}
