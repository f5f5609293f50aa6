// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"image-review/internal/model"
	"image-review/internal/service"
	"image-review/pkg/errreport"
	"image-review/pkg/log"

	"github.com/gin-gonic/gin"
)

// statusFor 将业务错误映射为 HTTP 状态码，未识别的错误一律视为 500。
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidClaim),
		errors.Is(err, service.ErrInvalidTaskState),
		errors.Is(err, service.ErrInvalidImageState),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidUserState):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserDisabled),
		errors.Is(err, service.ErrImageNotClaimed):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNoMatchingImages),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, service.ErrImageFileMissing),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 写出统一的错误响应 {code, message, error}。
func abortWithError(c *gin.Context, status int, message string, err error) {
	body := gin.H{"code": status, "message": message}
	if err != nil {
		body["error"] = err.Error()
	} else {
		body["error"] = message
	}
	c.AbortWithStatusJSON(status, body)
}

// respondServiceError 根据业务错误选择状态码；500 会被记录到日志。
func respondServiceError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("%s: %v", op, err)
		errreport.Capture(c.Request.Context(), op, err)
		abortWithError(c, status, "服务器内部错误", err)
		return
	}
	log.Warnf("%s: %v", op, err)
	abortWithError(c, status, err.Error(), err)
}

func badRequest(c *gin.Context, message string, err error) {
	abortWithError(c, http.StatusBadRequest, message, err)
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

// currentUser 取出由 AuthMiddleware 注入的用户。
func currentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		abortWithError(c, http.StatusUnauthorized, "未认证用户或无法获取用户信息", nil)
		return nil, false
	}
	user, ok := value.(*model.User)
	if !ok || user == nil {
		abortWithError(c, http.StatusInternalServerError, "用户数据类型错误", nil)
		return nil, false
	}
	return user, true
}

// pathID 解析路径参数中的正整数 ID。
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "无效的 "+name, err)
		return 0, false
	}
	return uint(id), true
}

// queryInt 读取可选的整数查询参数，缺省或无法解析时返回 def。
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
