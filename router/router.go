package router

import (
	"github.com/andikamaulana/portal-sekolah/controllers"
	"github.com/andikamaulana/portal-sekolah/middlewares"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(db)
	notificationCtrl := controllers.NewNotificationController(db)
	messageCtrl := controllers.NewMessageController(db)
	contactCtrl := controllers.NewContactRequestController(db)
	announcementCtrl := controllers.NewAnnouncementController(db)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Rate limiter untuk login/register/contact publik
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
		public.POST("/contact-requests", contactCtrl.CreateContactRequest)
	}

	// Pengumuman yang sudah terbit bisa dibaca tanpa login
	r.GET("/announcements", announcementCtrl.GetPublishedAnnouncements)
	r.GET("/announcements/:announcement_id", announcementCtrl.GetAnnouncementByID)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.EnhancedAuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/logout", userCtrl.Logout)

	// NOTIFICATIONS (semua user login)
	auth.GET("/notifications", notificationCtrl.GetNotifications)
	auth.GET("/notifications/summary", notificationCtrl.GetUnreadSummary)
	auth.PATCH("/notifications/:notif_id/read", notificationCtrl.MarkNotificationRead)
	auth.POST("/notifications/read-all", notificationCtrl.MarkAllRead)
	auth.DELETE("/notifications", notificationCtrl.ClearNotifications)

	// MESSAGES
	auth.POST("/messages", messageCtrl.CreateMessage)
	auth.GET("/messages", messageCtrl.GetMessages)
	auth.PATCH("/messages/:message_id/read", messageCtrl.MarkMessageRead)

	// CONTACT REQUESTS (staff/admin)
	staffOnly := auth.Group("/")
	staffOnly.Use(middlewares.RequireRole("staff"))
	{
		staffOnly.GET("/contact-requests", contactCtrl.GetAllContactRequests)
		staffOnly.PATCH("/contact-requests/:request_id", contactCtrl.UpdateContactRequestStatus)
		staffOnly.DELETE("/contact-requests/:request_id", contactCtrl.DeleteContactRequest)
		staffOnly.POST("/contact-requests/restore", contactCtrl.RestoreContactRequests)
	}

	// ANNOUNCEMENTS (staff/admin yang kelola)
	announcementAdmin := auth.Group("/")
	announcementAdmin.Use(middlewares.RequireRole("staff"))
	{
		announcementAdmin.POST("/announcements", announcementCtrl.CreateAnnouncement)
		announcementAdmin.PATCH("/announcements/:announcement_id", announcementCtrl.UpdateAnnouncement)
		announcementAdmin.DELETE("/announcements/:announcement_id", announcementCtrl.DeleteAnnouncement)
	}

	// WebSocket endpoint dengan middleware khusus
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("", controllers.WSHandler)
	}

	return r
}
