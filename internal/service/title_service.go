package service

import (
	"context"

	"image-review/internal/model"
	"image-review/internal/repository"
)

// TitleService 提供标题层级的浏览。
type TitleService interface {
	Tree(ctx context.Context) ([]*model.ImageTitleNode, error)
	Children(ctx context.Context, parentID *uint) ([]model.ImageTitle, error)
}

type titleService struct {
	titleRepo repository.ImageTitleRepository
}

// NewTitleService 创建一个新的 TitleService 实例。
func NewTitleService(titleRepo repository.ImageTitleRepository) TitleService {
	return &titleService{titleRepo: titleRepo}
}

// Tree 取出全部标题并在内存中组装成树。节点按 level、ID 排序读出，子节点保持该顺序。
func (s *titleService) Tree(ctx context.Context) ([]*model.ImageTitleNode, error) {
	titles, err := s.titleRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint]*model.ImageTitleNode, len(titles))
	tree := make([]*model.ImageTitleNode, 0)
	for _, t := range titles {
		nodes[t.ID] = &model.ImageTitleNode{
			ID:       t.ID,
			Title:    t.Title,
			Level:    t.Level,
			ParentID: t.ParentID,
			Children: []*model.ImageTitleNode{},
		}
	}

	for _, t := range titles {
		node := nodes[t.ID]
		if t.ParentID == nil {
			tree = append(tree, node)
			continue
		}
		if parent, ok := nodes[*t.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			// 父节点已不存在，作为顶层节点返回
			tree = append(tree, node)
		}
	}
	return tree, nil
}

func (s *titleService) Children(ctx context.Context, parentID *uint) ([]model.ImageTitle, error) {
	return s.titleRepo.FindChildren(ctx, parentID)
}
