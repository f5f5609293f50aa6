package handler

import (
	"strconv"

	"image-review/internal/service"

	"github.com/gin-gonic/gin"
)

// TitleHandler 提供标题层级的浏览接口。
type TitleHandler struct {
	titleService service.TitleService
}

// NewTitleHandler 创建一个新的 TitleHandler 实例。
func NewTitleHandler(titleService service.TitleService) *TitleHandler {
	return &TitleHandler{titleService: titleService}
}

// Tree 返回完整的标题树。
func (h *TitleHandler) Tree(c *gin.Context) {
	tree, err := h.titleService.Tree(c.Request.Context())
	if err != nil {
		respondServiceError(c, "TitleTree", err)
		return
	}
	respondOK(c, tree)
}

// Children 返回 parentId 的直接子节点，缺省时返回顶层节点。
func (h *TitleHandler) Children(c *gin.Context) {
	var parentID *uint
	if raw := c.Query("parentId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			badRequest(c, "无效的 parentId", err)
			return
		}
		p := uint(id)
		parentID = &p
	}

	titles, err := h.titleService.Children(c.Request.Context(), parentID)
	if err != nil {
		respondServiceError(c, "TitleChildren", err)
		return
	}
	respondOK(c, titles)
}
