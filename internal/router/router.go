package router

import (
	"net/http"
	"time"

	"github.com/coursems/coursems-backend/internal/config"
	"github.com/coursems/coursems-backend/internal/handler"
	"github.com/coursems/coursems-backend/internal/middleware"
	"github.com/coursems/coursems-backend/internal/response"
	"github.com/coursems/coursems-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Course *handler.CourseHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// Role checks live in the enrollment engine, not in route middleware, so
// every protected route only needs an authenticated caller here.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes.
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/register", handlers.Auth.Register)

		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Courses & Enrollment Group (JWT) ───────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireAuth(authService))
	{
		api.POST("/courses", handlers.Course.CreateCourse)
		api.GET("/courses/mine", handlers.Course.MyCourses)
		api.GET("/courses/:course_id", handlers.Course.GetCourse)
		api.PUT("/courses/:course_id", handlers.Course.EditCourse)
		api.DELETE("/courses/:course_id", handlers.Course.DeleteCourse)

		api.POST("/courses/:course_id/enroll", handlers.Course.Enroll)
		api.POST("/courses/:course_id/enrollments/:student_id/confirm", handlers.Course.ConfirmEnrollment)
		api.GET("/courses/:course_id/confirmed-students", handlers.Course.ConfirmedStudents)

		api.GET("/enrollments", handlers.Course.ListEnrollments)
	}

	return router
}
