package services

import (
	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/realtime"
	"github.com/andikamaulana/portal-sekolah/utils"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Create -> simpan notifikasi lalu dorong ke user tujuan.
// Cache per-user selalu diisi; push websocket hanya jika ada koneksi hidup,
// kalau tidak client menyusul lewat polling.
func (ns *NotificationService) Create(notif *models.Notification) error {
	if err := ns.DB.Create(notif).Error; err != nil {
		return err
	}
	ns.Dispatch(*notif, realtime.EventNotificationNew)
	return nil
}

// Dispatch -> tulis ke cache recency + broadcast ke koneksi user
func (ns *NotificationService) Dispatch(notif models.Notification, event string) {
	ev := realtime.EventFromNotification(notif)
	realtime.Cache.Store(notif.UserID, ev)

	if server := realtime.GetServer(); server != nil {
		server.BroadcastToUser(notif.UserID, event, ev)
	}
}

// NotifyAdmins -> buat notifikasi untuk semua admin (contact request masuk, dsb)
func (ns *NotificationService) NotifyAdmins(kind, title string, description *string, actionURL *string) error {
	var adminIDs []uint
	if err := ns.DB.Model(&models.User{}).
		Where("role = ?", "admin").
		Pluck("id", &adminIDs).Error; err != nil {
		return err
	}

	for _, id := range adminIDs {
		notif := models.Notification{
			Kind:        kind,
			Title:       title,
			Description: description,
			UserID:      id,
			ActionURL:   actionURL,
		}
		if err := ns.Create(&notif); err != nil {
			utils.ErrorLogger.Printf("Error creating admin notification for user %d: %v", id, err)
		}
	}
	return nil
}

// NotifyAudience -> fan-out notifikasi pengumuman ke role tertentu ("all" = semua)
func (ns *NotificationService) NotifyAudience(audience string, notif models.Notification) error {
	q := ns.DB.Model(&models.User{})
	if audience != "" && audience != "all" {
		q = q.Where("role = ?", audience)
	}

	var userIDs []uint
	if err := q.Pluck("id", &userIDs).Error; err != nil {
		return err
	}

	for _, id := range userIDs {
		n := notif
		n.ID = 0
		n.UserID = id
		if err := ns.Create(&n); err != nil {
			utils.ErrorLogger.Printf("Error creating audience notification for user %d: %v", id, err)
		}
	}
	return nil
}
