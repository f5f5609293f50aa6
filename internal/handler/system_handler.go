package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version 在构建时通过 -ldflags "-X image-review/internal/handler.Version=..." 注入。
var Version = "dev"

// SystemHandler 提供版本与健康检查接口。
type SystemHandler struct{}

func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

func (h *SystemHandler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "version": Version})
}

func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
