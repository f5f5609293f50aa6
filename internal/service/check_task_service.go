package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"image-review/internal/metrics"
	"image-review/internal/model"
	"image-review/internal/repository"
	"image-review/pkg/log"

	"gorm.io/gorm"
)

const (
	defaultPage      = 1
	defaultPageLimit = 10
)

// pageBounds 规范化分页参数并返回 offset。maxLimit 为 0 时不限制每页数量。
// page 过大时被收紧到 offset 不超过 MaxInt32，结果仍是空页而不是第一页。
func pageBounds(page, limit, maxLimit int) (int, int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}
	return page, limit, (page - 1) * limit
}

// ClaimRequest 描述一次领取：按标题层级过滤，最多领取 Count 张图片。
type ClaimRequest struct {
	Titles repository.TitleFilter
	Count  int
}

// ClaimResult 是领取成功后的返回结构。
type ClaimResult struct {
	CheckImageListID uint `json:"checkImageListID"`
	UserID           uint `json:"userID"`
	ImageCount       int  `json:"imageCount"`
	AssignedImages   int  `json:"assignedImages"`
}

// TaskPage 是分页查询任务列表的返回结构。
type TaskPage struct {
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Tasks []model.CheckTask `json:"tasks"`
}

// TaskDetail 包含任务本身与其占用的图片。
type TaskDetail struct {
	Task   *model.CheckTask `json:"task"`
	Images []model.Image    `json:"images"`
}

// CheckTaskService 接口定义了检查任务的领取、查询、状态修改与放弃。
type CheckTaskService interface {
	Create(ctx context.Context, userID uint, req ClaimRequest) (*ClaimResult, error)
	ListForUser(ctx context.Context, userID uint, page, limit int) (*TaskPage, error)
	Get(ctx context.Context, userID, taskID uint) (*TaskDetail, error)
	UpdateState(ctx context.Context, userID, taskID uint, state int) (*model.CheckTask, error)
	Abandon(ctx context.Context, userID, taskID uint) error
}

type checkTaskService struct {
	taskRepo      repository.CheckTaskRepository
	imageRepo     repository.ImageRepository
	metrics       *metrics.Metrics
	maxClaimCount int
	maxPageSize   int
}

// NewCheckTaskService 创建一个新的 CheckTaskService 实例。
// maxClaimCount、maxPageSize 不大于 0 时表示不限制。
func NewCheckTaskService(taskRepo repository.CheckTaskRepository, imageRepo repository.ImageRepository, m *metrics.Metrics, maxClaimCount, maxPageSize int) CheckTaskService {
	return &checkTaskService{
		taskRepo:      taskRepo,
		imageRepo:     imageRepo,
		metrics:       m,
		maxClaimCount: maxClaimCount,
		maxPageSize:   maxPageSize,
	}
}

// Create 领取一批图片。
func (s *checkTaskService) Create(ctx context.Context, userID uint, req ClaimRequest) (*ClaimResult, error) {
	if req.Titles.Empty() || req.Count <= 0 {
		return nil, ErrInvalidClaim
	}
	count := req.Count
	if s.maxClaimCount > 0 && count > s.maxClaimCount {
		count = s.maxClaimCount
	}

	task, err := s.taskRepo.Claim(ctx, userID, req.Titles, count)
	if err != nil {
		if errors.Is(err, repository.ErrNoCandidates) {
			s.metrics.RecordClaim("no_match", 0)
			return nil, ErrNoMatchingImages
		}
		s.metrics.RecordClaim("error", 0)
		return nil, fmt.Errorf("领取图片失败: %w", err)
	}
	s.metrics.RecordClaim("ok", task.ImageCount)

	log.Infow("check task created",
		"taskID", task.ID,
		"userID", userID,
		"path", task.Path,
		"requested", req.Count,
		"assigned", task.ImageCount,
	)
	return &ClaimResult{
		CheckImageListID: task.ID,
		UserID:           task.UserID,
		ImageCount:       task.ImageCount,
		AssignedImages:   task.ImageCount,
	}, nil
}

// ListForUser 返回一页任务，返回前会根据图片的实时状态重算本页任务的进度。
// total 在重算之前统计。
func (s *checkTaskService) ListForUser(ctx context.Context, userID uint, page, limit int) (*TaskPage, error) {
	page, limit, offset := pageBounds(page, limit, s.maxPageSize)

	total, err := s.taskRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("统计任务数量失败: %w", err)
	}

	tasks, err := s.taskRepo.FindPageByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("查询任务列表失败: %w", err)
	}

	if len(tasks) > 0 {
		ids := make([]uint, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}
		if err := s.taskRepo.Reconcile(ctx, ids); err != nil {
			return nil, fmt.Errorf("同步任务进度失败: %w", err)
		}
		// 重新读取同一页，拿到重算后的行
		tasks, err = s.taskRepo.FindPageByUser(ctx, userID, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("查询任务列表失败: %w", err)
		}

		completed := 0
		for _, t := range tasks {
			if t.State == model.TaskStateCompleted {
				completed++
			}
		}
		s.metrics.RecordReconcile(len(ids), completed)
	}

	return &TaskPage{Total: total, Page: page, Limit: limit, Tasks: tasks}, nil
}

// Get 返回任务详情，任务不属于 userID 时视为不存在。
func (s *checkTaskService) Get(ctx context.Context, userID, taskID uint) (*TaskDetail, error) {
	task, err := s.taskRepo.FindByIDAndUser(ctx, taskID, userID)
	if err != nil {
		return nil, translateTaskErr(err)
	}
	images, err := s.imageRepo.FindByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("查询任务图片失败: %w", err)
	}
	return &TaskDetail{Task: task, Images: images}, nil
}

func (s *checkTaskService) UpdateState(ctx context.Context, userID, taskID uint, state int) (*model.CheckTask, error) {
	if !model.ValidTaskState(state) {
		return nil, ErrInvalidTaskState
	}
	task, err := s.taskRepo.UpdateState(ctx, taskID, userID, state)
	if err != nil {
		return nil, translateTaskErr(err)
	}
	log.Infof("check task %d state set to %d by user %d", taskID, state, userID)
	return task, nil
}

// Abandon 释放任务占用的全部图片并删除任务。
func (s *checkTaskService) Abandon(ctx context.Context, userID, taskID uint) error {
	released, err := s.taskRepo.Abandon(ctx, taskID, userID)
	if err != nil {
		return translateTaskErr(err)
	}
	s.metrics.RecordAbandon(released)
	log.Infow("check task abandoned", "taskID", taskID, "userID", userID, "released", released)
	return nil
}

func translateTaskErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("检查任务操作失败: %w", err)
}
