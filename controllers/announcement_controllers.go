package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/andikamaulana/portal-sekolah/cache"
	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/services"
	"github.com/andikamaulana/portal-sekolah/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AnnouncementController struct {
	DB       *gorm.DB
	NotifSvc *services.NotificationService
}

func NewAnnouncementController(db *gorm.DB) *AnnouncementController {
	return &AnnouncementController{
		DB:       db,
		NotifSvc: services.NewNotificationService(db),
	}
}

// GetPublishedAnnouncements -> list publik, dirender lewat memo tag.
// Mutasi admin membuat memo basi: same-context langsung, pembaca lain
// setelah purge asinkron.
func (ac *AnnouncementController) GetPublishedAnnouncements(c *gin.Context) {
	value, err := cache.Tags.Fetch(c, "page:/admin/"+cache.ResourceAnnouncements, func() (interface{}, error) {
		var anns []models.Announcement
		err := ac.DB.Where("published = ?", true).
			Order("created_at DESC").
			Find(&anns).Error
		return anns, err
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Announcements", value)
}

// GetAnnouncementByID -> detail, juga lewat memo tag per record
func (ac *AnnouncementController) GetAnnouncementByID(c *gin.Context) {
	idStr := c.Param("announcement_id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("announcement_id tidak valid"))
		return
	}

	// Route publik: draft tidak boleh bocor, hanya yang published
	tag := "page:/admin/" + cache.ResourceAnnouncements + "/" + idStr
	value, err := cache.Tags.Fetch(c, tag, func() (interface{}, error) {
		var ann models.Announcement
		err := ac.DB.Where("published = ?", true).First(&ann, id).Error
		return ann, err
	})
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Announcement detail", value)
}

// CreateAnnouncement -> buat pengumuman; jika langsung published,
// fan-out notifikasi ke audience
func (ac *AnnouncementController) CreateAnnouncement(c *gin.Context) {
	authorID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("viewer tidak dikenal"))
		return
	}

	type reqBody struct {
		Title     string `json:"title" binding:"required"`
		Body      string `json:"body" binding:"required"`
		Audience  string `json:"audience"`
		Published bool   `json:"published"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Audience == "" {
		body.Audience = "all"
	}

	ann := models.Announcement{
		AuthorID:  authorID,
		Title:     body.Title,
		Body:      body.Body,
		Audience:  body.Audience,
		Published: body.Published,
	}
	if err := ac.DB.Create(&ann).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if ann.Published {
		ac.notifyAudience(ann)
	}

	recordID := ann.ID
	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceAnnouncements, RecordID: &recordID})

	utils.RespondJSON(c, http.StatusCreated, "Announcement created", ann)
}

// UpdateAnnouncement -> edit; publish pertama kali memicu fan-out
func (ac *AnnouncementController) UpdateAnnouncement(c *gin.Context) {
	idStr := c.Param("announcement_id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("announcement_id tidak valid"))
		return
	}

	var ann models.Announcement
	if err := ac.DB.First(&ann, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	type reqBody struct {
		Title     *string `json:"title"`
		Body      *string `json:"body"`
		Audience  *string `json:"audience"`
		Published *bool   `json:"published"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	wasPublished := ann.Published
	if body.Title != nil {
		ann.Title = *body.Title
	}
	if body.Body != nil {
		ann.Body = *body.Body
	}
	if body.Audience != nil {
		ann.Audience = *body.Audience
	}
	if body.Published != nil {
		ann.Published = *body.Published
	}

	if err := ac.DB.Save(&ann).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if !wasPublished && ann.Published {
		ac.notifyAudience(ann)
	}

	recordID := ann.ID
	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceAnnouncements, RecordID: &recordID})

	utils.RespondJSON(c, http.StatusOK, "Announcement updated", ann)
}

// DeleteAnnouncement
func (ac *AnnouncementController) DeleteAnnouncement(c *gin.Context) {
	idStr := c.Param("announcement_id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("announcement_id tidak valid"))
		return
	}

	if err := ac.DB.Delete(&models.Announcement{}, id).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	recordID := uint(id)
	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceAnnouncements, RecordID: &recordID})

	utils.RespondJSON(c, http.StatusOK, "Announcement deleted", gin.H{"announcement_id": id})
}

func (ac *AnnouncementController) notifyAudience(ann models.Announcement) {
	actionURL := "/announcements/" + strconv.Itoa(int(ann.ID))
	authorID := ann.AuthorID
	err := ac.NotifSvc.NotifyAudience(ann.Audience, models.Notification{
		Kind:       models.NotifKindAnnouncement,
		Title:      ann.Title,
		FromUserID: &authorID,
		ActionURL:  &actionURL,
	})
	if err != nil {
		utils.ErrorLogger.Printf("Error notifying audience for announcement %d: %v", ann.ID, err)
	}
}
