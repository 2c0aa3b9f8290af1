package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/andikamaulana/portal-sekolah/cache"
	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/realtime"
	"github.com/andikamaulana/portal-sekolah/services"
	"github.com/andikamaulana/portal-sekolah/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MessageController struct {
	DB       *gorm.DB
	NotifSvc *services.NotificationService
}

func NewMessageController(db *gorm.DB) *MessageController {
	return &MessageController{
		DB:       db,
		NotifSvc: services.NewNotificationService(db),
	}
}

// CreateMessage -> kirim pesan, plus notifikasi kind=message untuk penerima
func (mc *MessageController) CreateMessage(c *gin.Context) {
	senderID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	type reqBody struct {
		ReceiverID uint    `json:"receiver_id" binding:"required"`
		Subject    *string `json:"subject"`
		Body       string  `json:"body" binding:"required"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var receiver models.User
	if err := mc.DB.First(&receiver, body.ReceiverID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("penerima tidak ditemukan"))
		return
	}

	msg := models.Message{
		SenderID:   senderID,
		ReceiverID: body.ReceiverID,
		Subject:    body.Subject,
		Body:       body.Body,
	}
	if err := mc.DB.Create(&msg).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	// Push ke penerima kalau sedang terkoneksi; offline cukup lewat badge
	if server := realtime.GetServer(); server != nil && server.IsUserOnline(msg.ReceiverID) {
		server.BroadcastToUser(msg.ReceiverID, realtime.EventMessageNew, msg)
	}

	// Notifikasi ikut dibuat supaya badge dan riwayat tetap konsisten
	title := "Pesan baru"
	if body.Subject != nil && *body.Subject != "" {
		title = *body.Subject
	}
	messageID := msg.ID
	fromID := senderID
	notif := models.Notification{
		Kind:       models.NotifKindMessage,
		Title:      title,
		FromUserID: &fromID,
		UserID:     msg.ReceiverID,
		MessageID:  &messageID,
	}
	if err := mc.NotifSvc.Create(&notif); err != nil {
		utils.ErrorLogger.Printf("Error creating message notification: %v", err)
	}

	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceMessages, RecordID: &messageID})

	utils.RespondJSON(c, http.StatusCreated, "Message sent", msg)
}

// GetMessages -> inbox viewer, terbaru dulu
func (mc *MessageController) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	var msgs []models.Message
	if err := mc.DB.Where("receiver_id = ? OR sender_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(100).
		Find(&msgs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Messages", msgs)
}

// MarkMessageRead -> hanya penerima yang boleh menandai dibaca
func (mc *MessageController) MarkMessageRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	idStr := c.Param("message_id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("message_id tidak valid"))
		return
	}

	var msg models.Message
	if err := mc.DB.Where("id = ? AND receiver_id = ?", id, userID).First(&msg).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	now := time.Now()
	if err := mc.DB.Model(&msg).Update("read_at", now).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	msg.ReadAt = &now

	if server := realtime.GetServer(); server != nil {
		server.BroadcastToUser(msg.ReceiverID, realtime.EventMessageUpdated, msg)
		server.BroadcastToUser(msg.SenderID, realtime.EventMessageUpdated, msg)
	}

	recordID := msg.ID
	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceMessages, RecordID: &recordID})

	utils.RespondJSON(c, http.StatusOK, "Message marked as read", msg)
}
