package repository

import (
	"context"
	"errors"

	"image-review/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoCandidates 表示没有符合条件的未领取图片，领取事务已整体回滚。
var ErrNoCandidates = errors.New("no unclaimed images match the filter")

// CheckTaskRepository 接口定义了检查任务的持久化操作。
type CheckTaskRepository interface {
	// Claim 在一个事务中创建任务并领取最多 count 张匹配 filter 的未领取图片。
	Claim(ctx context.Context, userID uint, filter TitleFilter, count int) (*model.CheckTask, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	FindPageByUser(ctx context.Context, userID uint, offset, limit int) ([]model.CheckTask, error)
	// Reconcile 根据图片的实时状态重算任务进度，可重复调用。
	Reconcile(ctx context.Context, taskIDs []uint) error
	FindByID(ctx context.Context, taskID uint) (*model.CheckTask, error)
	FindByIDAndUser(ctx context.Context, taskID, userID uint) (*model.CheckTask, error)
	UpdateState(ctx context.Context, taskID, userID uint, state int) (*model.CheckTask, error)
	// Abandon 释放任务占用的图片并删除任务，返回被释放的图片数量。
	Abandon(ctx context.Context, taskID, userID uint) (int64, error)
}

type checkTaskRepository struct {
	db *gorm.DB
}

// NewCheckTaskRepository 创建一个新的 CheckTaskRepository 实例。
func NewCheckTaskRepository(db *gorm.DB) CheckTaskRepository {
	return &checkTaskRepository{db: db}
}

// Claim 的步骤：
//  1. 插入任务行，imageCount 暂记为请求数量；
//  2. 选出候选图片（MySQL 下加 FOR UPDATE SKIP LOCKED，候选顺序由数据库决定）；
//  3. 用带 state = 0 AND imageListID IS NULL 条件的 UPDATE 领取，影响行数即实际分配数量；
//  4. 回写 imageCount。
//
// 步骤 3 的条件保证一张图片不会被两个任务同时领取；没有领取到任何图片时返回
// ErrNoCandidates，任务行随事务一起回滚。
func (r *checkTaskRepository) Claim(ctx context.Context, userID uint, filter TitleFilter, count int) (*model.CheckTask, error) {
	var claimed *model.CheckTask
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task := &model.CheckTask{
			UserID:     userID,
			State:      model.TaskStateOpen,
			ImageCount: count,
			Path:       filter.Path(),
		}
		if err := tx.Create(task).Error; err != nil {
			return err
		}

		candidates := filter.Apply(tx.Model(&model.Image{})).
			Where("state = ? AND imageListID IS NULL", model.ImageStateUnclaimed).
			Limit(count)
		if tx.Dialector.Name() == "mysql" {
			candidates = candidates.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var ids []uint
		if err := candidates.Pluck("imageID", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrNoCandidates
		}

		res := tx.Model(&model.Image{}).
			Where("imageID IN ? AND state = ? AND imageListID IS NULL", ids, model.ImageStateUnclaimed).
			Updates(map[string]interface{}{
				"state":       model.ImageStateInReview,
				"imageListID": task.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoCandidates
		}

		task.ImageCount = int(res.RowsAffected)
		if err := tx.Model(&model.CheckTask{}).
			Where("checkImageListID = ?", task.ID).
			Update("imageCount", task.ImageCount).Error; err != nil {
			return err
		}
		claimed = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *checkTaskRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.CheckTask{}).Where("userID = ?", userID).Count(&total).Error
	return total, err
}

// FindPageByUser 按 ID 倒序返回用户的一页任务。
func (r *checkTaskRepository) FindPageByUser(ctx context.Context, userID uint, offset, limit int) ([]model.CheckTask, error) {
	tasks := make([]model.CheckTask, 0)
	err := r.db.WithContext(ctx).
		Where("userID = ?", userID).
		Order("checkImageListID DESC").
		Offset(offset).
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// Reconcile 在一个事务中为每个任务重算 checked_count（不处于审核中的图片数），
// 并在 checked_count 等于 imageCount 时将任务标记为已完成。
// 只写入这些任务行本身，任一步失败整体回滚。
func (r *checkTaskRepository) Reconcile(ctx context.Context, taskIDs []uint) error {
	if len(taskIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tasks []model.CheckTask
		if err := tx.Where("checkImageListID IN ?", taskIDs).Find(&tasks).Error; err != nil {
			return err
		}
		for _, task := range tasks {
			var checked int64
			if err := tx.Model(&model.Image{}).
				Where("imageListID = ? AND state <> ?", task.ID, model.ImageStateInReview).
				Count(&checked).Error; err != nil {
				return err
			}

			updates := map[string]interface{}{"checked_count": checked}
			if int(checked) == task.ImageCount {
				updates["state"] = model.TaskStateCompleted
			}
			if err := tx.Model(&model.CheckTask{}).
				Where("checkImageListID = ?", task.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *checkTaskRepository) FindByID(ctx context.Context, taskID uint) (*model.CheckTask, error) {
	var task model.CheckTask
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByIDAndUser 只返回属于 userID 的任务；不存在与不属于该用户都返回 gorm.ErrRecordNotFound。
func (r *checkTaskRepository) FindByIDAndUser(ctx context.Context, taskID, userID uint) (*model.CheckTask, error) {
	var task model.CheckTask
	err := r.db.WithContext(ctx).
		Where("checkImageListID = ? AND userID = ?", taskID, userID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateState 直接写入任务状态，不影响图片。
func (r *checkTaskRepository) UpdateState(ctx context.Context, taskID, userID uint, state int) (*model.CheckTask, error) {
	var task model.CheckTask
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("checkImageListID = ? AND userID = ?", taskID, userID).First(&task).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.CheckTask{}).
			Where("checkImageListID = ?", taskID).
			Update("state", state).Error; err != nil {
			return err
		}
		task.State = state
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *checkTaskRepository) Abandon(ctx context.Context, taskID, userID uint) (int64, error) {
	var released int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.CheckTask
		if err := tx.Where("checkImageListID = ? AND userID = ?", taskID, userID).First(&task).Error; err != nil {
			return err
		}

		res := tx.Model(&model.Image{}).
			Where("imageListID = ?", taskID).
			Updates(map[string]interface{}{
				"state":       model.ImageStateUnclaimed,
				"imageListID": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		released = res.RowsAffected

		return tx.Where("checkImageListID = ?", taskID).Delete(&model.CheckTask{}).Error
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}
