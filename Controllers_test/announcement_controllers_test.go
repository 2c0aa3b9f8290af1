package Controllers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andikamaulana/portal-sekolah/cache"
	"github.com/andikamaulana/portal-sekolah/controllers"
	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/utils"
)

func setupAnnouncementRouter(t *testing.T) (*gorm.DB, *gin.Engine) {
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Notification{}, &models.Announcement{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	db.Create(&models.User{Name: "Staff", Email: "staff@sekolah.id", Password: "secret", Role: "staff"})

	// Memo tag global; bersihkan supaya hasil test lain tidak terbaca di sini
	cache.Tags.Purge(
		"page:/admin/"+cache.ResourceAnnouncements,
		"page:/admin/"+cache.ResourceAnnouncements+"/1",
		"page:/admin/"+cache.ResourceAnnouncements+"/2",
	)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	annCtrl := controllers.NewAnnouncementController(db)
	router.GET("/announcements", annCtrl.GetPublishedAnnouncements)
	router.GET("/announcements/:announcement_id", annCtrl.GetAnnouncementByID)

	return db, router
}

func TestPublicAnnouncementDetailHidesDraft(t *testing.T) {
	db, router := setupAnnouncementRouter(t)

	db.Create(&models.Announcement{AuthorID: 1, Title: "Draft internal", Body: "belum siap", Audience: "all", Published: false})
	db.Create(&models.Announcement{AuthorID: 1, Title: "Libur semester", Body: "mulai senin", Audience: "all", Published: true})

	// Draft tidak boleh bisa ditebak lewat id
	req := httptest.NewRequest("GET", "/announcements/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "Draft internal")

	req = httptest.NewRequest("GET", "/announcements/2", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Libur semester")
}

func TestPublicAnnouncementListOnlyPublished(t *testing.T) {
	db, router := setupAnnouncementRouter(t)

	db.Create(&models.Announcement{AuthorID: 1, Title: "Draft internal", Body: "belum siap", Audience: "all", Published: false})
	db.Create(&models.Announcement{AuthorID: 1, Title: "Libur semester", Body: "mulai senin", Audience: "all", Published: true})

	req := httptest.NewRequest("GET", "/announcements", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Libur semester")
	assert.NotContains(t, w.Body.String(), "Draft internal")
}
