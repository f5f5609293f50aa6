package service

import (
	"context"
	"errors"
	"fmt"

	"image-review/internal/model"
	"image-review/internal/repository"
	"image-review/pkg/log"

	"gorm.io/gorm"
)

// UserListResponse 定义了用户列表 API 的响应结构。
type UserListResponse struct {
	Content       []UserDetailResponse `json:"content"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Size          int                  `json:"size"`
	Number        int                  `json:"number"`
}

// UserDetailResponse 定义了用户列表项的详细结构。
type UserDetailResponse struct {
	UserID uint   `json:"userID"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   int    `json:"role"`
	State  int    `json:"state"`
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	ListUsers(ctx context.Context, role *int, page, size int) (*UserListResponse, error)
	UpdateUserRole(ctx context.Context, userID uint, role int) error
	UpdateUserState(ctx context.Context, userID uint, state int) error
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	userRepo repository.UserRepository
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(userRepo repository.UserRepository) AdminService {
	return &adminService{userRepo: userRepo}
}

// ListUsers 以分页的形式返回用户列表，role 为 nil 时不过滤角色。
func (s *adminService) ListUsers(ctx context.Context, role *int, page, size int) (*UserListResponse, error) {
	page, size, offset := pageBounds(page, size, 0)
	users, total, err := s.userRepo.FindWithPagination(ctx, role, offset, size)
	if err != nil {
		return nil, err
	}

	userResponses := make([]UserDetailResponse, 0, len(users))
	for _, u := range users {
		userResponses = append(userResponses, UserDetailResponse{
			UserID: u.ID,
			Name:   u.Name,
			Email:  u.Email,
			Role:   u.Role,
			State:  u.State,
		})
	}

	totalPages := 0
	if total > 0 && size > 0 {
		totalPages = (int(total) + size - 1) / size
	}

	return &UserListResponse{
		Content:       userResponses,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}

func (s *adminService) UpdateUserRole(ctx context.Context, userID uint, role int) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return ErrInvalidRole
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return translateUserErr(err)
	}
	log.Infof("[AdminService] user %d role set to %d", userID, role)
	return nil
}

// UpdateUserState 禁用或启用用户。被禁用用户的已签发 token 会在下一次请求时被认证中间件拒绝。
func (s *adminService) UpdateUserState(ctx context.Context, userID uint, state int) error {
	if state != model.UserStateActive && state != model.UserStateDisabled {
		return ErrInvalidUserState
	}
	if err := s.userRepo.UpdateState(ctx, userID, state); err != nil {
		return translateUserErr(err)
	}
	log.Infof("[AdminService] user %d state set to %d", userID, state)
	return nil
}

func translateUserErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("更新用户失败: %w", err)
}
