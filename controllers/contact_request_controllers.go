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

type ContactRequestController struct {
	DB       *gorm.DB
	NotifSvc *services.NotificationService
}

func NewContactRequestController(db *gorm.DB) *ContactRequestController {
	return &ContactRequestController{
		DB:       db,
		NotifSvc: services.NewNotificationService(db),
	}
}

// CreateContactRequest -> form kontak publik, tanpa auth.
// Semua admin dapat notifikasi alert.
func (cc *ContactRequestController) CreateContactRequest(c *gin.Context) {
	type reqBody struct {
		Name    string  `json:"name" binding:"required"`
		Email   string  `json:"email" binding:"required,email"`
		Phone   *string `json:"phone"`
		Subject *string `json:"subject"`
		Body    string  `json:"body" binding:"required"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	req := models.ContactRequest{
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Subject: body.Subject,
		Body:    body.Body,
		Status:  models.ContactStatusPending,
	}
	if err := cc.DB.Create(&req).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	desc := "Dari " + req.Name + " <" + req.Email + ">"
	actionURL := "/admin/contact-requests/" + strconv.Itoa(int(req.ID))
	if err := cc.NotifSvc.NotifyAdmins(models.NotifKindAlert, "Contact request baru", &desc, &actionURL); err != nil {
		utils.ErrorLogger.Printf("Error notifying admins: %v", err)
	}

	recordID := req.ID
	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceContactRequests, RecordID: &recordID})

	utils.RespondJSON(c, http.StatusCreated, "Contact request received", gin.H{
		"contact_request_id": req.ID,
	})
}

// GetAllContactRequests -> daftar untuk admin, soft-deleted tidak ikut
func (cc *ContactRequestController) GetAllContactRequests(c *gin.Context) {
	var reqs []models.ContactRequest
	q := cc.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&reqs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Contact requests", reqs)
}

// UpdateContactRequestStatus -> pending/read/replied/archived
func (cc *ContactRequestController) UpdateContactRequestStatus(c *gin.Context) {
	idStr := c.Param("request_id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("request_id tidak valid"))
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	switch body.Status {
	case models.ContactStatusPending, models.ContactStatusRead,
		models.ContactStatusReplied, models.ContactStatusArchived:
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("status tidak dikenal"))
		return
	}

	var req models.ContactRequest
	if err := cc.DB.First(&req, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if err := cc.DB.Model(&req).Update("status", body.Status).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	req.Status = body.Status

	recordID := req.ID
	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceContactRequests, RecordID: &recordID})

	utils.RespondJSON(c, http.StatusOK, "Contact request updated", req)
}

// DeleteContactRequest -> soft delete, counter pending otomatis turun
func (cc *ContactRequestController) DeleteContactRequest(c *gin.Context) {
	idStr := c.Param("request_id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("request_id tidak valid"))
		return
	}

	if err := cc.DB.Delete(&models.ContactRequest{}, id).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	recordID := uint(id)
	cache.Tags.Invalidate(c, cache.Request{Resource: cache.ResourceContactRequests, RecordID: &recordID})

	utils.RespondJSON(c, http.StatusOK, "Contact request deleted", gin.H{"request_id": id})
}

// RestoreContactRequests -> bulk restore, varian invalidasi tanpa record id
func (cc *ContactRequestController) RestoreContactRequests(c *gin.Context) {
	var body struct {
		IDs []uint `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	res := cc.DB.Unscoped().Model(&models.ContactRequest{}).
		Where("id IN ?", body.IDs).
		Update("deleted_at", nil)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}

	cache.Tags.InvalidateBulk(c, cache.ResourceContactRequests)

	utils.RespondJSON(c, http.StatusOK, "Contact requests restored", gin.H{
		"count": res.RowsAffected,
	})
}
