// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-review/internal/config"
	"image-review/internal/handler"
	"image-review/internal/metrics"
	"image-review/internal/repository"
	"image-review/internal/service"
	"image-review/pkg/database"
	"image-review/pkg/errreport"
	"image-review/pkg/kafka"
	"image-review/pkg/log"
	"image-review/pkg/storage"
	"image-review/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := "./configs/config.yaml"
	if p := os.Getenv("IMGREVIEW_CONFIG"); p != "" {
		configPath = p
	}

	// 1. 初始化配置
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	if err := errreport.Init(cfg.Sentry, handler.Version); err != nil {
		log.Fatal("初始化错误上报失败", err)
	}
	defer errreport.Flush(2 * time.Second)

	// 3. 初始化数据库、Redis、对象存储与 Kafka 生产者
	database.Init(cfg.Database)
	database.InitRedis(cfg.Database.Redis)
	var store storage.ObjectStore
	if s := storage.InitMinIO(cfg.MinIO); s != nil {
		store = s
	}
	producer := kafka.InitProducer(cfg.Kafka)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		log.Fatal("初始化指标失败", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	tokenRepo := repository.NewTokenRepository(database.RDB)
	imageRepo := repository.NewImageRepository(database.DB)
	titleRepo := repository.NewImageTitleRepository(database.DB)
	taskRepo := repository.NewCheckTaskRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	userService := service.NewUserService(userRepo, tokenRepo, jwtManager)
	services := handler.Services{
		User:      userService,
		Admin:     service.NewAdminService(userRepo),
		CheckTask: service.NewCheckTaskService(taskRepo, imageRepo, m, cfg.Review.MaxClaimCount, cfg.Review.MaxPageSize),
		Image: service.NewImageService(imageRepo, taskRepo, store, producer,
			time.Duration(cfg.MinIO.URLExpireMinutes)*time.Minute, cfg.Review.MaxPageSize),
		Title: service.NewTitleService(titleRepo),
	}

	if err := userService.EnsureAdmin(context.Background(), cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatal("初始化管理员账号失败", err)
	}

	// 6. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(services, jwtManager, m)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	if err := producer.Close(); err != nil {
		log.Errorf("关闭 Kafka 生产者失败: %v", err)
	}
	if database.RDB != nil {
		_ = database.RDB.Close()
	}
	database.Close()
	log.Info("服务已优雅关闭")
}
