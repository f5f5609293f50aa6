package service

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"image-review/internal/model"
	"image-review/internal/repository"
	"image-review/pkg/hash"
	"image-review/pkg/log"
	"image-review/pkg/storage"
)

// ImportReport 汇总一次目录导入的结果。
type ImportReport struct {
	Scanned       int `json:"scanned"`
	Imported      int `json:"imported"`
	Duplicates    int `json:"duplicates"`
	Failed        int `json:"failed"`
	TitlesCreated int `json:"titlesCreated"`
}

// ImportOptions 控制导入行为。
type ImportOptions struct {
	// Upload 为 true 时同时把文件写入对象存储，imgPath 记录对象名；否则记录相对路径。
	Upload bool
	// DryRun 只扫描并统计，不写数据库。
	DryRun bool
}

// ImportService 把一个按目录分类的图片文件夹导入 image 与 image_title 表。
type ImportService interface {
	ImportDir(ctx context.Context, root string, opts ImportOptions) (*ImportReport, error)
}

type importService struct {
	imageRepo repository.ImageRepository
	titleRepo repository.ImageTitleRepository
	store     storage.ObjectStore
}

// NewImportService 创建一个新的 ImportService 实例。store 可以为 nil，此时不支持 Upload。
func NewImportService(imageRepo repository.ImageRepository, titleRepo repository.ImageTitleRepository, store storage.ObjectStore) ImportService {
	return &importService{imageRepo: imageRepo, titleRepo: titleRepo, store: store}
}

type titleKey struct {
	parentID uint // 0 表示顶层
	title    string
}

// ImportDir 遍历 root：
//   - 目录的前五层作为 First..Fifth；
//   - 每一层目录对应一个 image_title 节点，按 (父节点, 标题) 复用；
//   - 内容 MD5 已存在的文件跳过。
//
// 单个文件失败只计数并记录日志，不中断整个导入。
func (s *importService) ImportDir(ctx context.Context, root string, opts ImportOptions) (*ImportReport, error) {
	if opts.Upload && s.store == nil {
		return nil, ErrStorageDisabled
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s 不是目录", root)
	}

	cache, err := s.loadTitleCache(ctx)
	if err != nil {
		return nil, err
	}
	report := &ImportReport{}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsImageFile(d.Name()) {
			return nil
		}
		report.Scanned++

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if err := s.importFile(ctx, p, rel, opts, cache, report); err != nil {
			report.Failed++
			log.Warnf("[ImportService] 导入 %s 失败: %v", rel, err)
		}
		if report.Scanned%100 == 0 {
			log.Infof("[ImportService] 已扫描 %d 张图片", report.Scanned)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	log.Infow("import finished",
		"root", root,
		"scanned", report.Scanned,
		"imported", report.Imported,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
		"titlesCreated", report.TitlesCreated,
	)
	return report, nil
}

func (s *importService) loadTitleCache(ctx context.Context) (map[titleKey]uint, error) {
	titles, err := s.titleRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取标题节点失败: %w", err)
	}
	cache := make(map[titleKey]uint, len(titles))
	for _, t := range titles {
		key := titleKey{title: t.Title}
		if t.ParentID != nil {
			key.parentID = *t.ParentID
		}
		cache[key] = t.ID
	}
	return cache, nil
}

func (s *importService) importFile(ctx context.Context, fullPath, rel string, opts ImportOptions, cache map[titleKey]uint, report *ImportReport) error {
	f, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer f.Close()

	md5, size, err := hash.MD5Reader(f)
	if err != nil {
		return err
	}
	exists, err := s.imageRepo.ExistsByMD5(ctx, md5)
	if err != nil {
		return err
	}
	if exists {
		report.Duplicates++
		return nil
	}
	if opts.DryRun {
		report.Imported++
		return nil
	}

	parts := strings.Split(rel, "/")
	dirs, name := parts[:len(parts)-1], parts[len(parts)-1]
	if err := s.ensureTitles(ctx, dirs, cache, report); err != nil {
		return err
	}

	image := &model.Image{
		State:   model.ImageStateUnclaimed,
		MD5:     md5,
		ImgName: name,
		ImgPath: rel,
	}
	image.SetTitles(dirs)

	if opts.Upload {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		objectName := objectNameFor(md5, name)
		if err := s.store.PutObject(ctx, objectName, f, size, ""); err != nil {
			return fmt.Errorf("上传到对象存储失败: %w", err)
		}
		image.ImgPath = objectName
	}

	if err := s.imageRepo.Create(ctx, image); err != nil {
		return err
	}
	report.Imported++
	return nil
}

// ensureTitles 为每一层目录确保存在对应的标题节点，层级不受五层限制。
func (s *importService) ensureTitles(ctx context.Context, dirs []string, cache map[titleKey]uint, report *ImportReport) error {
	var parentID *uint
	for i, title := range dirs {
		key := titleKey{title: title}
		if parentID != nil {
			key.parentID = *parentID
		}
		id, ok := cache[key]
		if !ok {
			node := &model.ImageTitle{Title: title, ParentID: parentID, Level: i + 1}
			if err := s.titleRepo.Create(ctx, node); err != nil {
				return fmt.Errorf("创建标题节点 %q 失败: %w", title, err)
			}
			id = node.ID
			cache[key] = id
			report.TitlesCreated++
		}
		parentID = &id
	}
	return nil
}
