package main

import (
	"os"

	"transfer-credit-api/config"
	"transfer-credit-api/controllers"
	"transfer-credit-api/middleware"
	"transfer-credit-api/routes"
	"transfer-credit-api/services"
	"transfer-credit-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	logFile := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database
	config.InitDB()
	config.MigrateDB()

	app := config.LoadApp()

	store, err := storage.New(storage.ConfigFromEnv(app.UploadPath))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize document storage")
	}

	api := controllers.NewAPI(config.DB, store, app)

	// Background sweep for submissions a crash left stuck in processing.
	services.NewJanitor(config.DB, app.StaleAfter).Start(app.JanitorSchedule)

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.Logger())

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Token-gated log download for operators, enabled only when a token
	// is configured.
	if token := os.Getenv("LOG_ACCESS_TOKEN"); token != "" {
		router.GET("/logs", func(c *gin.Context) {
			if c.Query("token") != token {
				c.JSON(401, gin.H{"error": "Unauthorized"})
				return
			}

			logData, err := os.ReadFile(config.LogFilePath())
			if err != nil {
				c.JSON(500, gin.H{"error": "Unable to read log"})
				return
			}

			c.Data(200, "text/plain; charset=utf-8", logData)
		})
	}

	// Setup routes
	routes.SetupRoutes(router, api)

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().
		Str("port", port).
		Str("mode", ginMode).
		Bool("real_ranking", app.AnthropicAPIKey != "").
		Msg("transfer credit API starting")

	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
