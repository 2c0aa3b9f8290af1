package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/andikamaulana/portal-sekolah/cache"
	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/realtime"
	"github.com/andikamaulana/portal-sekolah/services"
	"github.com/andikamaulana/portal-sekolah/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type NotificationController struct {
	DB        *gorm.DB
	UnreadSvc *services.UnreadService
	NotifSvc  *services.NotificationService
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{
		DB:        db,
		UnreadSvc: services.NewUnreadService(db),
		NotifSvc:  services.NewNotificationService(db),
	}
}

// GetNotifications -> daftar notifikasi viewer dengan pagination.
// limit 1-100 default 20, offset >= 0 default 0, unread_only opsional.
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	unreadOnly := c.Query("unread_only") == "true"

	scope := func() *gorm.DB {
		q := nc.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
		if unreadOnly {
			q = q.Where("is_read = ?", false)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var notifs []models.Notification
	if err := scope().Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var unreadCount int64
	if err := nc.DB.Model(&models.Notification{}).
		Scopes(models.UnreadNotifications(userID)).
		Count(&unreadCount).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notifications", gin.H{
		"notifications": notifs,
		"total":         total,
		"unread_count":  unreadCount,
		"has_more":      int64(offset+len(notifs)) < total,
	})
}

// GetUnreadSummary -> tiga counter untuk badge UI.
// Wajib ada identitas viewer; tanpa itu 401, tidak pernah fallback "view all".
func (nc *NotificationController) GetUnreadSummary(c *gin.Context) {
	viewer, ok := currentUser(c, nc.DB)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	snapshot, err := nc.UnreadSvc.GetSnapshot(c.Request.Context(), viewer)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Unread summary", gin.H{
		"unread_messages":      snapshot.UnreadMessages,
		"unread_notifications": snapshot.UnreadNotifications,
		"contact_requests":     snapshot.ContactRequests,
	})
}

// MarkNotificationRead -> flip is_read milik viewer sendiri
func (nc *NotificationController) MarkNotificationRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	idStr := c.Param("notif_id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("notif_id tidak valid"))
		return
	}

	var notif models.Notification
	if err := nc.DB.Where("id = ? AND user_id = ?", id, userID).First(&notif).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if err := nc.DB.Model(&notif).Update("is_read", true).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	notif.IsRead = true

	// Sinkronkan cache recency, lalu kabari client untuk refetch
	realtime.Cache.Update(userID, notif.ID, func(ev *realtime.Event) {
		ev.IsRead = true
	})
	nc.NotifSvc.Dispatch(notif, realtime.EventNotificationUpdated)

	recordID := notif.ID
	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceNotifications, RecordID: &recordID})

	utils.RespondJSON(c, http.StatusOK, "Notification marked as read", notif)
}

// MarkAllRead -> tandai semua notifikasi viewer sebagai dibaca
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	res := nc.DB.Model(&models.Notification{}).
		Scopes(models.UnreadNotifications(userID)).
		Update("is_read", true)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}

	for _, ev := range realtime.Cache.Recent(userID, 0) {
		realtime.Cache.Update(userID, ev.ID, func(cached *realtime.Event) {
			cached.IsRead = true
		})
	}
	if server := realtime.GetServer(); server != nil {
		server.BroadcastToUser(userID, realtime.EventNotificationUpdated, gin.H{"all_read": true})
	}

	cache.Tags.InvalidateBulk(c, cache.ResourceNotifications)

	utils.RespondJSON(c, http.StatusOK, "All notifications marked as read", gin.H{
		"count": res.RowsAffected,
	})
}

// ClearNotifications -> bulk clear, hanya milik viewer yang dipanggil.
// Role apa pun tidak pernah menghapus notifikasi user lain lewat endpoint ini.
func (nc *NotificationController) ClearNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	res := nc.DB.Where("user_id = ?", userID).Delete(&models.Notification{})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}

	realtime.Cache.Clear(userID)
	cache.Tags.InvalidateBulk(c, cache.ResourceNotifications)

	utils.InfoLogger.Printf("Cleared %d notifications for user %d", res.RowsAffected, userID)

	utils.RespondJSON(c, http.StatusOK, "Notifications cleared", gin.H{
		"count": res.RowsAffected,
	})
}
