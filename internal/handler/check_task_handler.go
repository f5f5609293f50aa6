package handler

import (
	"net/http"

	"image-review/internal/repository"
	"image-review/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckTaskHandler 负责检查任务的领取、查询、状态修改与放弃。
// 这组接口直接返回业务结构，不使用 {code, message, data} 包装。
type CheckTaskHandler struct {
	taskService service.CheckTaskService
}

// NewCheckTaskHandler 创建一个新的 CheckTaskHandler 实例。
func NewCheckTaskHandler(taskService service.CheckTaskService) *CheckTaskHandler {
	return &CheckTaskHandler{taskService: taskService}
}

// CreateCheckTaskRequest 定义了领取图片 API 的请求体结构。
type CreateCheckTaskRequest struct {
	First  string `json:"First"`
	Second string `json:"Second"`
	Third  string `json:"Third"`
	Fourth string `json:"Fourth"`
	Fifth  string `json:"Fifth"`
	Count  int    `json:"count"`
}

// UpdateStateRequest 定义了修改状态的请求体结构，state 为必填。
type UpdateStateRequest struct {
	State *int `json:"state" binding:"required"`
}

// Create 领取一批图片并创建检查任务。
func (h *CheckTaskHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateCheckTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载", err)
		return
	}

	result, err := h.taskService.Create(c.Request.Context(), user.ID, service.ClaimRequest{
		Titles: repository.TitleFilter{
			First:  req.First,
			Second: req.Second,
			Third:  req.Third,
			Fourth: req.Fourth,
			Fifth:  req.Fifth,
		},
		Count: req.Count,
	})
	if err != nil {
		respondServiceError(c, "CreateCheckTask", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListMine 分页返回当前用户的任务，返回前会同步任务进度。
func (h *CheckTaskHandler) ListMine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	result, err := h.taskService.ListForUser(c.Request.Context(), user.ID, page, limit)
	if err != nil {
		respondServiceError(c, "ListCheckTasks", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get 返回任务详情及其图片。
func (h *CheckTaskHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}

	detail, err := h.taskService.Get(c.Request.Context(), user.ID, taskID)
	if err != nil {
		respondServiceError(c, "GetCheckTask", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateState 直接修改任务状态。
func (h *CheckTaskHandler) UpdateState(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载：state 不能为空", err)
		return
	}

	task, err := h.taskService.UpdateState(c.Request.Context(), user.ID, taskID, *req.State)
	if err != nil {
		respondServiceError(c, "UpdateCheckTaskState", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Abandon 放弃任务并释放其图片。
func (h *CheckTaskHandler) Abandon(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}

	if err := h.taskService.Abandon(c.Request.Context(), user.ID, taskID); err != nil {
		respondServiceError(c, "AbandonCheckTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "任务已放弃，图片已释放", "taskId": taskID})
}
