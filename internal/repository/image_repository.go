package repository

import (
	"context"

	"image-review/internal/model"

	"gorm.io/gorm"
)

// ImageQuery 是图片列表的过滤条件。
type ImageQuery struct {
	Titles TitleFilter
	State  *int
}

// StateCount 是某个状态下的图片数量。
type StateCount struct {
	State int   `json:"state"`
	Count int64 `json:"count"`
}

// TitleCount 是某个标题下的图片数量。
type TitleCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// ImageRepository 接口定义了 image 表的读写操作。
type ImageRepository interface {
	Create(ctx context.Context, image *model.Image) error
	FindByID(ctx context.Context, imageID uint) (*model.Image, error)
	ExistsByMD5(ctx context.Context, md5 string) (bool, error)
	FindWithPagination(ctx context.Context, q ImageQuery, offset, limit int) ([]model.Image, int64, error)
	FindByTask(ctx context.Context, taskID uint) ([]model.Image, error)
	CountByState(ctx context.Context, filter TitleFilter) ([]StateCount, error)
	CountByTitle(ctx context.Context, filter TitleFilter, level int) ([]TitleCount, error)
	UpdateState(ctx context.Context, imageID uint, state int) error
	UpdateCaption(ctx context.Context, imageID uint, caption, chinaElementName string) error
	UpdateFile(ctx context.Context, imageID uint, md5, imgName, imgPath string) error
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository 创建一个新的 ImageRepository 实例。
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *model.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *imageRepository) FindByID(ctx context.Context, imageID uint) (*model.Image, error) {
	var image model.Image
	if err := r.db.WithContext(ctx).First(&image, imageID).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// ExistsByMD5 判断是否已有相同内容的图片。
func (r *imageRepository) ExistsByMD5(ctx context.Context, md5 string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Image{}).Where("md5 = ?", md5).Count(&count).Error
	return count > 0, err
}

// FindWithPagination 按过滤条件分页查询图片。
func (r *imageRepository) FindWithPagination(ctx context.Context, q ImageQuery, offset, limit int) ([]model.Image, int64, error) {
	var images []model.Image
	var total int64

	db := q.Titles.Apply(r.db.WithContext(ctx).Model(&model.Image{}))
	if q.State != nil {
		db = db.Where("state = ?", *q.State)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("imageID").Offset(offset).Limit(limit).Find(&images).Error; err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

// FindByTask 返回 imageListID 指向该任务的所有图片。
func (r *imageRepository) FindByTask(ctx context.Context, taskID uint) ([]model.Image, error) {
	images := make([]model.Image, 0)
	err := r.db.WithContext(ctx).Where("imageListID = ?", taskID).Order("imageID").Find(&images).Error
	return images, err
}

// CountByState 按状态聚合过滤范围内的图片数量。
func (r *imageRepository) CountByState(ctx context.Context, filter TitleFilter) ([]StateCount, error) {
	var rows []StateCount
	err := filter.Apply(r.db.WithContext(ctx).Model(&model.Image{})).
		Select("state, COUNT(*) AS count").
		Group("state").
		Order("state").
		Scan(&rows).Error
	return rows, err
}

// CountByTitle 按第 level 层标题聚合过滤范围内的图片数量。
func (r *imageRepository) CountByTitle(ctx context.Context, filter TitleFilter, level int) ([]TitleCount, error) {
	column := TitleColumn(level)
	if column == "" {
		return []TitleCount{}, nil
	}
	var rows []TitleCount
	err := filter.Apply(r.db.WithContext(ctx).Model(&model.Image{})).
		Select(column+" AS title, COUNT(*) AS count").
		Where(column + " IS NOT NULL").
		Group(column).
		Order(column).
		Scan(&rows).Error
	return rows, err
}

func (r *imageRepository) UpdateState(ctx context.Context, imageID uint, state int) error {
	return r.db.WithContext(ctx).Model(&model.Image{}).Where("imageID = ?", imageID).Update("state", state).Error
}

func (r *imageRepository) UpdateCaption(ctx context.Context, imageID uint, caption, chinaElementName string) error {
	return r.db.WithContext(ctx).Model(&model.Image{}).Where("imageID = ?", imageID).
		Updates(map[string]interface{}{"caption": caption, "chinaElementName": chinaElementName}).Error
}

// UpdateFile 记录上传后的文件信息。
func (r *imageRepository) UpdateFile(ctx context.Context, imageID uint, md5, imgName, imgPath string) error {
	return r.db.WithContext(ctx).Model(&model.Image{}).Where("imageID = ?", imageID).
		Updates(map[string]interface{}{"md5": md5, "imgName": imgName, "imgPath": imgPath}).Error
}
