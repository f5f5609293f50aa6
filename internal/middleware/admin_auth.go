package middleware

import (
	"net/http"

	"image-review/internal/model"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 检查用户是否具有管理员权限。
// 此中间件必须在 AuthMiddleware 之后使用。
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从 AuthMiddleware 设置的上下文中获取 user 对象
		user, exists := c.Get("user")
		if !exists {
			abort(c, http.StatusInternalServerError, "无法获取用户信息")
			return
		}

		currentUser, ok := user.(*model.User)
		if !ok {
			abort(c, http.StatusInternalServerError, "用户数据类型错误")
			return
		}

		// 角色按整数比较
		if !currentUser.IsAdmin() {
			abort(c, http.StatusForbidden, "权限不足，需要管理员权限")
			return
		}

		c.Next()
	}
}
