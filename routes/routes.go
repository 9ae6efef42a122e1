package routes

import (
	"transfer-credit-api/controllers"
	"transfer-credit-api/middleware"
	"transfer-credit-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, api *controllers.API) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/register", controllers.Register)
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Transfer Credit API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			staff := middleware.RequireRole(models.RoleEvaluator, models.RoleAdmin)
			adminOnly := middleware.RequireRole(models.RoleAdmin)

			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// In-app notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", api.Notifications.List)
				notifications.PUT("/read-all", api.Notifications.MarkAllRead)
				notifications.PUT("/:id/read", api.Notifications.MarkRead)
			}

			// Target course catalog (all authenticated users can browse)
			catalog := protected.Group("/catalog")
			{
				catalog.GET("", api.Catalog.List)
				catalog.GET("/:id", api.Catalog.Get)

				// Only staff maintain the catalog
				catalog.POST("", staff, api.Catalog.Create)
				catalog.PUT("/:id", staff, api.Catalog.Update)
				catalog.POST("/import", staff, api.Catalog.Import)
				catalog.DELETE("/:id", adminOnly, api.Catalog.Delete)
			}

			// Transcript submissions
			submissions := protected.Group("/submissions")
			{
				submissions.POST("", api.Submissions.Upload)
				submissions.GET("", api.Submissions.List)
				submissions.GET("/:id", api.Submissions.Get)
				submissions.GET("/:id/transcript", api.Submissions.Download)
				submissions.GET("/:id/export", api.Submissions.Export)
				submissions.DELETE("/:id", api.Submissions.Delete)

				// Courses the extractor missed can be added by hand
				submissions.POST("/:id/courses", api.Syllabi.AddManualCourse)

				// Staff can force a full re-run
				submissions.POST("/:id/reprocess", staff, api.Submissions.Reprocess)
			}

			// Extracted courses
			courses := protected.Group("/courses")
			{
				courses.POST("/:id/syllabus", api.Syllabi.Upload)
				courses.GET("/:id/syllabus", api.Syllabi.DownloadSyllabus)
				courses.POST("/:id/rematch", staff, api.Syllabi.Rematch)
			}

			// Review workflow
			evaluations := protected.Group("/evaluations")
			evaluations.Use(staff)
			{
				evaluations.GET("/queue", api.Evaluations.Queue)
				evaluations.GET("/submissions/:id", api.Evaluations.Open)
				evaluations.POST("/submissions/:id/reopen", api.Evaluations.Reopen)
				evaluations.POST("/courses/:id/decision", api.Evaluations.Decide)
			}

			// Reports
			reports := protected.Group("/reports")
			reports.Use(staff)
			{
				reports.GET("/summary", api.Evaluations.Summary)
				reports.GET("/decisions.xlsx", api.Evaluations.ExportDecisions)
			}

			// Administration
			admin := protected.Group("/admin")
			admin.Use(adminOnly)
			{
				admin.GET("/stats", api.Admin.Stats)
				admin.GET("/users", api.Admin.ListUsers)
				admin.POST("/users", api.Admin.CreateUser)
				admin.PUT("/users/:id", api.Admin.UpdateUser)
				admin.DELETE("/users/:id", api.Admin.DeleteUser)
				admin.POST("/janitor/sweep", api.Admin.SweepStale)
			}
		}
	}
}
