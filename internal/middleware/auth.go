// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"image-review/internal/model"
	"image-review/internal/service"
	"image-review/pkg/log"
	"image-review/pkg/token"

	"github.com/gin-gonic/gin"
)

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message, "error": message})
}

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性，并将完整的 User 对象存入 Gin 的上下文中。
// 用户状态以数据库为准，被禁用的用户即使持有未过期的 token 也会被拒绝。
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "请求未包含授权头")
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abort(c, http.StatusUnauthorized, "无效的授权头格式")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		// refresh token 不能作为访问凭证
		claims, err := jwtManager.VerifyAccessToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "无效或已过期的 token")
			return
		}

		revoked, err := userService.IsTokenRevoked(c.Request.Context(), tokenString)
		if err != nil {
			log.Error("AuthMiddleware: 检查 token 黑名单失败", err)
			abort(c, http.StatusInternalServerError, "无法校验 token")
			return
		}
		if revoked {
			abort(c, http.StatusUnauthorized, "token 已失效，请重新登录")
			return
		}

		user, err := userService.GetProfile(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				abort(c, http.StatusUnauthorized, "用户不存在")
				return
			}
			log.Error("AuthMiddleware: 查询用户失败", err)
			abort(c, http.StatusInternalServerError, "无法获取用户信息")
			return
		}
		if user.State == model.UserStateDisabled {
			abort(c, http.StatusForbidden, "用户已被禁用")
			return
		}

		c.Set("user", user)
		c.Set("claims", claims)
		c.Next()
	}
}
