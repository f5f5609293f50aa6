package handler

import (
	"strconv"

	"image-review/internal/model"
	"image-review/internal/service"
	"image-review/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理管理员的用户管理请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers 处理分页获取用户列表的请求，可按 role 过滤。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	var role *int
	if raw := c.Query("role"); raw != "" {
		r, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "无效的 role", err)
			return
		}
		role = &r
	}

	userList, err := h.adminService.ListUsers(c.Request.Context(), role, page, size)
	if err != nil {
		respondServiceError(c, "ListUsers", err)
		return
	}
	respondOK(c, userList)
}

// UpdateUserRoleRequest 定义了修改用户角色的请求体结构。
type UpdateUserRoleRequest struct {
	Role *int `json:"role" binding:"required"`
}

// UpdateUserRole 修改指定用户的角色。
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载：role 不能为空", err)
		return
	}
	if err := h.adminService.UpdateUserRole(c.Request.Context(), userID, *req.Role); err != nil {
		respondServiceError(c, "UpdateUserRole", err)
		return
	}

	if admin, ok := c.Get("user"); ok {
		if u, ok := admin.(*model.User); ok {
			log.Infof("Admin '%s' set role of user %d to %d", u.Email, userID, *req.Role)
		}
	}
	respondOK(c, gin.H{"userID": userID, "role": *req.Role})
}

// UpdateUserState 启用或禁用指定用户。
func (h *AdminHandler) UpdateUserState(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载：state 不能为空", err)
		return
	}
	if err := h.adminService.UpdateUserState(c.Request.Context(), userID, *req.State); err != nil {
		respondServiceError(c, "UpdateUserState", err)
		return
	}
	respondOK(c, gin.H{"userID": userID, "state": *req.State})
}
