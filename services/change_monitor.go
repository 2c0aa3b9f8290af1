package services

import (
	"log"
	"time"

	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/realtime"
	"gorm.io/gorm"
)

// ChangeMonitor membaca baris db_changes yang ditulis trigger SQL dan
// meneruskannya sebagai event realtime. Ini jembatan untuk mutasi yang masuk
// di luar API (import batch, tool admin langsung ke database). Pengiriman
// at-least-once: client melakukan refetch idempoten, duplikat tidak masalah.
type ChangeMonitor struct {
	DB       *gorm.DB
	StopChan chan struct{}
	Interval time.Duration
}

func NewChangeMonitor(db *gorm.DB) *ChangeMonitor {
	return &ChangeMonitor{
		DB:       db,
		StopChan: make(chan struct{}),
		Interval: 1 * time.Second,
	}
}

func (cm *ChangeMonitor) Start() {
	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.checkChanges()
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ChangeMonitor) Stop() {
	close(cm.StopChan)
}

func (cm *ChangeMonitor) checkChanges() {
	var changes []models.DBChange

	// Transaction untuk mencegah dua tick memproses baris yang sama
	tx := cm.DB.Begin()

	if err := tx.Where("processed = ?", false).
		Order("changed_at ASC").
		Limit(100).
		Find(&changes).Error; err != nil {
		tx.Rollback()
		log.Printf("Error fetching changes: %v", err)
		return
	}

	for _, change := range changes {
		switch change.TableName {
		case "notifications":
			cm.processNotificationChange(change)
		case "messages":
			cm.processMessageChange(change)
		case "contact_requests":
			cm.processContactRequestChange(change)
		}

		if err := tx.Model(&models.DBChange{}).
			Where("id = ?", change.ID).
			Update("processed", true).Error; err != nil {
			tx.Rollback()
			log.Printf("Error marking change as processed: %v", err)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		log.Printf("Error committing changes: %v", err)
		return
	}

	if len(changes) > 0 {
		log.Printf("Processed %d db changes", len(changes))
	}
}

func (cm *ChangeMonitor) processNotificationChange(change models.DBChange) {
	if change.ActionType == "DELETE" {
		// Pemilik tidak bisa dibaca lagi dari row; cache akan tersapu oleh
		// refetch client, cukup lewati.
		return
	}

	var notif models.Notification
	if err := cm.DB.First(&notif, change.RecordID).Error; err != nil {
		log.Printf("Error fetching notification %d: %v", change.RecordID, err)
		return
	}

	ev := realtime.EventFromNotification(notif)
	switch change.ActionType {
	case "INSERT":
		realtime.Cache.Store(notif.UserID, ev)
		cm.broadcast(notif.UserID, realtime.EventNotificationNew, ev)
	case "UPDATE":
		realtime.Cache.Update(notif.UserID, notif.ID, func(cached *realtime.Event) {
			cached.IsRead = notif.IsRead
			cached.Metadata = ev.Metadata
		})
		cm.broadcast(notif.UserID, realtime.EventNotificationUpdated, ev)
	}
}

func (cm *ChangeMonitor) processMessageChange(change models.DBChange) {
	if change.ActionType == "DELETE" {
		return
	}

	var msg models.Message
	if err := cm.DB.First(&msg, change.RecordID).Error; err != nil {
		log.Printf("Error fetching message %d: %v", change.RecordID, err)
		return
	}

	switch change.ActionType {
	case "INSERT":
		cm.broadcast(msg.ReceiverID, realtime.EventMessageNew, msg)
	case "UPDATE":
		cm.broadcast(msg.ReceiverID, realtime.EventMessageUpdated, msg)
		cm.broadcast(msg.SenderID, realtime.EventMessageUpdated, msg)
	}
}

// processContactRequestChange -> sinyal invalidasi murni ke semua admin
// supaya badge pending direfetch. Tidak membuat baris notifikasi di sini:
// jalur API sudah melakukannya, dan redelivery tidak boleh menggandakan row.
func (cm *ChangeMonitor) processContactRequestChange(change models.DBChange) {
	var adminIDs []uint
	if err := cm.DB.Model(&models.User{}).
		Where("role = ?", "admin").
		Pluck("id", &adminIDs).Error; err != nil {
		log.Printf("Error fetching admin ids: %v", err)
		return
	}

	payload := map[string]interface{}{
		"contact_request_id": change.RecordID,
		"action":             change.ActionType,
	}
	for _, id := range adminIDs {
		cm.broadcast(id, realtime.EventContactRequest, payload)
	}
}

func (cm *ChangeMonitor) broadcast(userID uint, event string, payload interface{}) {
	if server := realtime.GetServer(); server != nil {
		server.BroadcastToUser(userID, event, payload)
	}
}
