package handler

import (
	"net/http"

	"image-review/internal/metrics"
	"image-review/internal/middleware"
	"image-review/internal/service"
	"image-review/pkg/errreport"
	"image-review/pkg/log"
	"image-review/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services 汇集路由需要的全部业务服务。
type Services struct {
	User      service.UserService
	Admin     service.AdminService
	CheckTask service.CheckTaskService
	Image     service.ImageService
	Title     service.TitleService
}

// NewRouter 创建路由引擎并注册全部路由。m 为 nil 时不暴露 /metrics。
func NewRouter(svc Services, jwtManager *token.JWTManager, m *metrics.Metrics) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(m), gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorf("panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		errreport.Recover(c.FullPath(), recovered)
		abortWithError(c, http.StatusInternalServerError, "服务器内部错误", nil)
	}))

	system := NewSystemHandler()
	r.GET("/healthz", system.Health)
	if registry := m.Registry(); registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	userHandler := NewUserHandler(svc.User)
	authHandler := NewAuthHandler(svc.User)
	adminHandler := NewAdminHandler(svc.Admin)
	taskHandler := NewCheckTaskHandler(svc.CheckTask)
	imageHandler := NewImageHandler(svc.Image)
	titleHandler := NewTitleHandler(svc.Title)

	requireAuth := middleware.AuthMiddleware(jwtManager, svc.User)
	requireAdmin := middleware.AdminAuthMiddleware()

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", authHandler.RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			authed := users.Group("")
			authed.Use(requireAuth)
			{
				authed.GET("/me", userHandler.GetProfile)
				authed.POST("/logout", userHandler.Logout)
			}
		}

		apiV1.GET("/system/version", requireAuth, system.GetVersion)

		tasks := apiV1.Group("/check-tasks")
		tasks.Use(requireAuth)
		{
			tasks.POST("", taskHandler.Create)
			tasks.GET("/user", taskHandler.ListMine)
			tasks.GET("/:taskId", taskHandler.Get)
			tasks.PUT("/:taskId/state", taskHandler.UpdateState)
			tasks.DELETE("/:taskId", taskHandler.Abandon)
		}

		images := apiV1.Group("/images")
		images.Use(requireAuth)
		{
			images.GET("", imageHandler.List)
			images.GET("/stats", imageHandler.Stats)
			images.GET("/:id", imageHandler.Get)
			images.GET("/:id/url", imageHandler.FileURL)
			images.PUT("/:id/state", imageHandler.UpdateState)
			images.PUT("/:id/caption", imageHandler.UpdateCaption)
			images.POST("/:id/file", requireAdmin, imageHandler.UploadFile)
		}

		titles := apiV1.Group("/titles")
		titles.Use(requireAuth)
		{
			titles.GET("", titleHandler.Children)
			titles.GET("/tree", titleHandler.Tree)
		}

		// 管理员路由组
		admin := apiV1.Group("/admin")
		admin.Use(requireAuth, requireAdmin)
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
			admin.PUT("/users/:id/state", adminHandler.UpdateUserState)
		}
	}
	return r
}
