package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/studyshare/config"
	"github.com/cppla/studyshare/controllers"
	"github.com/cppla/studyshare/middleware"
	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/utils"
)

// Services are the handlers' dependencies, built once in main.
type Services struct {
	Auth        *services.AuthService
	Files       *services.FileService
	Submissions *services.SubmissionService
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, svc Services) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = services.MaxUploadBytes + (1 << 20)

	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(utils.RecoveryWithZap(utils.Logger, true))
	}
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// wildcard origins cannot be combined with credentials
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController(svc.Auth)
	fileController := controllers.NewFileController(svc.Files)
	submissionController := controllers.NewSubmissionController(svc.Submissions)
	configController := controllers.NewConfigController()

	requireAdmin := middleware.AuthRequired(svc.Auth)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/admin-login", middleware.RateLimitMiddleware(cfg.RateLimitPerMinute), authController.AdminLogin)
	authGroup.POST("/logout", requireAdmin, authController.Logout)
	authGroup.GET("/me", requireAdmin, authController.Me)

	filesGroup := api.Group("/files")
	filesGroup.GET("/public", fileController.ListPublic)
	filesGroup.GET("/download/:id", fileController.Download)
	filesGroup.POST("/upload", requireAdmin, fileController.Upload)
	filesGroup.GET("/my-files", requireAdmin, fileController.ListMine)
	filesGroup.DELETE("/:id", requireAdmin, fileController.Delete)
	filesGroup.PUT("/:id/rename", requireAdmin, fileController.Rename)

	subsGroup := api.Group("/submissions")
	subsGroup.POST("/submit", middleware.RateLimitMiddleware(cfg.RateLimitPerMinute), submissionController.Submit)
	review := subsGroup.Group("")
	review.Use(requireAdmin)
	review.GET("/pending", submissionController.ListPending)
	review.GET("/all", submissionController.ListAll)
	review.GET("/download/:id", submissionController.Download)
	review.POST("/approve/:id", submissionController.Approve)
	review.POST("/reject/:id", submissionController.Reject)
	review.PUT("/:id/rename", submissionController.Rename)

	api.GET("/config/upload-policy", configController.GetUploadPolicy)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
