package main

import (
	"log"
	"os"

	"github.com/andikamaulana/portal-sekolah/config"
	"github.com/andikamaulana/portal-sekolah/database"
	"github.com/andikamaulana/portal-sekolah/middlewares"
	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/realtime"
	"github.com/andikamaulana/portal-sekolah/router"
	"github.com/andikamaulana/portal-sekolah/services"
	"github.com/andikamaulana/portal-sekolah/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func init() {
	// Load .env file di awal sebelum apapun
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()
}

func main() {
	// Initialize DB
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	// Set gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	// Transport server dibuat di awal supaya konfigurasi terikat sekali;
	// request berikutnya hanya memakai instance yang sama
	if _, err := realtime.EnsureServer(realtime.ConfigFromEnv()); err != nil {
		utils.ErrorLogger.Fatalf("Failed to init realtime server: %v", err)
	}

	// Change monitor menjembatani mutasi di luar API ke event realtime
	monitor := services.NewChangeMonitor(db)
	monitor.Start()
	defer monitor.Stop()

	// Setup rate limiter (50 requests per second per IP)
	rateLimiter := middlewares.NewRateLimiter(50, 1)

	// Setup router
	r := router.SetupRouter(db)
	r.Use(rateLimiter.RateLimit())

	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	// Run server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.Message{},
		&models.ContactRequest{},
		&models.Announcement{},
		&models.DBChange{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	// Execute triggers
	if err := database.ExecuteTriggers(db); err != nil {
		utils.ErrorLogger.Printf("Error setting up triggers: %v", err)
	}
}
