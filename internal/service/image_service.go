package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"image-review/internal/model"
	"image-review/internal/repository"
	"image-review/pkg/hash"
	"image-review/pkg/kafka"
	"image-review/pkg/log"
	"image-review/pkg/storage"
	"image-review/pkg/tasks"

	"gorm.io/gorm"
)

// imageExtensions 是上传与导入时接受的图片扩展名。
var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".tif": {}, ".tiff": {}, ".webp": {},
}

// IsImageFile 根据扩展名判断文件是否为支持的图片。
func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// ImagePage 是分页查询图片的返回结构。
type ImagePage struct {
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
	Images []model.Image `json:"images"`
}

// ImageStats 汇总某个标题前缀下的图片：按状态计数，以及下一层级各标题的数量。
type ImageStats struct {
	Total         int64                   `json:"total"`
	ByState       []repository.StateCount `json:"byState"`
	ChildrenLevel int                     `json:"childrenLevel"`
	Children      []repository.TitleCount `json:"children"`
}

// UploadedFile 描述一次上传的文件内容。
type UploadedFile struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.ReadSeeker
}

// ImageService 接口定义了图片目录的查询、审核结果写入与文件管理。
type ImageService interface {
	List(ctx context.Context, q repository.ImageQuery, page, limit int) (*ImagePage, error)
	Get(ctx context.Context, imageID uint) (*model.Image, error)
	Stats(ctx context.Context, filter repository.TitleFilter) (*ImageStats, error)
	UpdateState(ctx context.Context, actor *model.User, imageID uint, state int) (*model.Image, error)
	UpdateCaption(ctx context.Context, actor *model.User, imageID uint, caption, chinaElementName string) (*model.Image, error)
	UploadFile(ctx context.Context, actor *model.User, imageID uint, file UploadedFile) (*model.Image, error)
	FileURL(ctx context.Context, imageID uint) (string, error)
}

type imageService struct {
	imageRepo   repository.ImageRepository
	taskRepo    repository.CheckTaskRepository
	store       storage.ObjectStore
	producer    kafka.Producer
	urlExpiry   time.Duration
	maxPageSize int
}

// NewImageService 创建一个新的 ImageService 实例。store 为 nil 时文件相关操作返回 ErrStorageDisabled。
func NewImageService(imageRepo repository.ImageRepository, taskRepo repository.CheckTaskRepository, store storage.ObjectStore, producer kafka.Producer, urlExpiry time.Duration, maxPageSize int) ImageService {
	return &imageService{
		imageRepo:   imageRepo,
		taskRepo:    taskRepo,
		store:       store,
		producer:    producer,
		urlExpiry:   urlExpiry,
		maxPageSize: maxPageSize,
	}
}

func (s *imageService) List(ctx context.Context, q repository.ImageQuery, page, limit int) (*ImagePage, error) {
	page, limit, offset := pageBounds(page, limit, s.maxPageSize)
	images, total, err := s.imageRepo.FindWithPagination(ctx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("查询图片列表失败: %w", err)
	}
	if images == nil {
		images = []model.Image{}
	}
	return &ImagePage{Total: total, Page: page, Limit: limit, Images: images}, nil
}

func (s *imageService) Get(ctx context.Context, imageID uint) (*model.Image, error) {
	image, err := s.imageRepo.FindByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return image, nil
}

func (s *imageService) Stats(ctx context.Context, filter repository.TitleFilter) (*ImageStats, error) {
	byState, err := s.imageRepo.CountByState(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("统计图片状态失败: %w", err)
	}
	stats := &ImageStats{ByState: byState, Children: []repository.TitleCount{}}
	if stats.ByState == nil {
		stats.ByState = []repository.StateCount{}
	}
	for _, c := range byState {
		stats.Total += c.Count
	}

	if level := filter.Depth() + 1; level <= model.TitleLevels {
		children, err := s.imageRepo.CountByTitle(ctx, filter, level)
		if err != nil {
			return nil, fmt.Errorf("统计下级标题失败: %w", err)
		}
		stats.ChildrenLevel = level
		if children != nil {
			stats.Children = children
		}
	}
	return stats, nil
}

// editable 返回 actor 可以编辑的图片：管理员可编辑任意已领取图片，审核员只能编辑自己任务中的图片。
func (s *imageService) editable(ctx context.Context, actor *model.User, imageID uint) (*model.Image, error) {
	image, err := s.Get(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if image.ImageListID == nil {
		return nil, ErrImageNotClaimed
	}
	if actor.IsAdmin() {
		return image, nil
	}
	if _, err := s.taskRepo.FindByIDAndUser(ctx, *image.ImageListID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotClaimed
		}
		return nil, err
	}
	return image, nil
}

// UpdateState 写入审核结果，state 只能是 2 到 4。
// 已审核的图片不能退回审核中，否则已完成任务的进度会倒退。
func (s *imageService) UpdateState(ctx context.Context, actor *model.User, imageID uint, state int) (*model.Image, error) {
	if state < model.ImageStateApproved || state > model.ImageStateRejected {
		return nil, ErrInvalidImageState
	}
	image, err := s.editable(ctx, actor, imageID)
	if err != nil {
		return nil, err
	}
	if err := s.imageRepo.UpdateState(ctx, imageID, state); err != nil {
		return nil, fmt.Errorf("更新图片状态失败: %w", err)
	}
	image.State = state
	return image, nil
}

func (s *imageService) UpdateCaption(ctx context.Context, actor *model.User, imageID uint, caption, chinaElementName string) (*model.Image, error) {
	image, err := s.editable(ctx, actor, imageID)
	if err != nil {
		return nil, err
	}
	if err := s.imageRepo.UpdateCaption(ctx, imageID, caption, chinaElementName); err != nil {
		return nil, fmt.Errorf("更新图片描述失败: %w", err)
	}
	image.Caption = caption
	image.ChinaElementName = chinaElementName
	return image, nil
}

// objectNameFor 以内容 MD5 命名对象，相同内容只存一份。
func objectNameFor(md5, fileName string) string {
	return "images/" + md5 + strings.ToLower(path.Ext(fileName))
}

// UploadFile 将文件存入对象存储并回写 md5、imgName、imgPath，随后投递图片描述任务。
func (s *imageService) UploadFile(ctx context.Context, actor *model.User, imageID uint, file UploadedFile) (*model.Image, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	if !IsImageFile(file.Name) {
		return nil, fmt.Errorf("unsupported file type for %s", file.Name)
	}
	image, err := s.Get(ctx, imageID)
	if err != nil {
		return nil, err
	}

	md5, size, err := hash.MD5Reader(file.Content)
	if err != nil {
		return nil, fmt.Errorf("计算文件 MD5 失败: %w", err)
	}
	if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	objectName := objectNameFor(md5, file.Name)
	if err := s.store.PutObject(ctx, objectName, file.Content, size, file.ContentType); err != nil {
		log.Errorf("[ImageService] 上传图片到对象存储失败, objectName: %s, error: %v", objectName, err)
		return nil, fmt.Errorf("上传文件失败: %w", err)
	}
	if err := s.imageRepo.UpdateFile(ctx, imageID, md5, file.Name, objectName); err != nil {
		return nil, fmt.Errorf("更新图片文件信息失败: %w", err)
	}
	image.MD5 = md5
	image.ImgName = file.Name
	image.ImgPath = objectName

	task := tasks.CaptionTask{
		ImageID:    image.ID,
		MD5:        md5,
		ObjectName: objectName,
		ImgName:    file.Name,
		Path:       strings.Join(nonEmpty(image.Titles()), "/"),
		UploadedBy: actor.ID,
	}
	// 描述生成是旁路流程，投递失败不影响上传结果
	if err := s.producer.ProduceCaptionTask(ctx, task); err != nil {
		log.Warnf("[ImageService] 投递图片描述任务失败, imageID: %d, error: %v", image.ID, err)
	}
	log.Infof("[ImageService] 图片 %d 文件已更新为 %s", image.ID, objectName)
	return image, nil
}

// FileURL 返回图片文件的预签名访问链接。
func (s *imageService) FileURL(ctx context.Context, imageID uint) (string, error) {
	if s.store == nil {
		return "", ErrStorageDisabled
	}
	image, err := s.Get(ctx, imageID)
	if err != nil {
		return "", err
	}
	if image.ImgPath == "" {
		return "", ErrImageFileMissing
	}
	return s.store.PresignedURL(ctx, image.ImgPath, s.urlExpiry)
}

func nonEmpty(titles [model.TitleLevels]string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
