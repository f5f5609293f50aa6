package repository

import (
	"context"

	"image-review/internal/model"

	"gorm.io/gorm"
)

// ImageTitleRepository 接口定义了标题层级树的数据操作方法。
type ImageTitleRepository interface {
	Create(ctx context.Context, title *model.ImageTitle) error
	FindAll(ctx context.Context) ([]model.ImageTitle, error)
	FindChildren(ctx context.Context, parentID *uint) ([]model.ImageTitle, error)
}

type imageTitleRepository struct {
	db *gorm.DB
}

// NewImageTitleRepository 创建一个新的 ImageTitleRepository 实例。
func NewImageTitleRepository(db *gorm.DB) ImageTitleRepository {
	return &imageTitleRepository{db: db}
}

func (r *imageTitleRepository) Create(ctx context.Context, title *model.ImageTitle) error {
	return r.db.WithContext(ctx).Create(title).Error
}

// FindAll 按层级和 ID 顺序返回所有节点。
func (r *imageTitleRepository) FindAll(ctx context.Context) ([]model.ImageTitle, error) {
	var titles []model.ImageTitle
	err := r.db.WithContext(ctx).Order("level, imageTitleID").Find(&titles).Error
	return titles, err
}

// FindChildren 返回某节点的直接子节点，parentID 为 nil 时返回顶级节点。
func (r *imageTitleRepository) FindChildren(ctx context.Context, parentID *uint) ([]model.ImageTitle, error) {
	titles := make([]model.ImageTitle, 0)
	db := r.db.WithContext(ctx)
	if parentID == nil {
		db = db.Where("parentID IS NULL")
	} else {
		db = db.Where("parentID = ?", *parentID)
	}
	err := db.Order("title").Find(&titles).Error
	return titles, err
}
