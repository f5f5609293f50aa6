// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"image-review/internal/model"

	"gorm.io/gorm"
)

// UserRepository 接口定义了用户数据的持久化操作。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, userID uint) (*model.User, error)
	FindWithPagination(ctx context.Context, role *int, offset, limit int) ([]model.User, int64, error)
	UpdateRole(ctx context.Context, userID uint, role int) error
	UpdateState(ctx context.Context, userID uint, state int) error
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 在数据库中创建一个新的用户记录。
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail 根据邮箱查找用户。
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据用户 ID 查找用户。
func (r *userRepository) FindByID(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindWithPagination 分页检索用户，role 非 nil 时按角色过滤。
// 返回当前页的用户、总记录数和可能发生的错误。
func (r *userRepository) FindWithPagination(ctx context.Context, role *int, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if role != nil {
		db = db.Where("role = ?", *role)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("userID").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateRole 修改用户角色，用户不存在时返回 gorm.ErrRecordNotFound。
func (r *userRepository) UpdateRole(ctx context.Context, userID uint, role int) error {
	return r.updateColumn(ctx, userID, "role", role)
}

// UpdateState 修改账号状态，用户不存在时返回 gorm.ErrRecordNotFound。
func (r *userRepository) UpdateState(ctx context.Context, userID uint, state int) error {
	return r.updateColumn(ctx, userID, "state", state)
}

func (r *userRepository) updateColumn(ctx context.Context, userID uint, column string, value int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Select("userID").First(&user, userID).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("userID = ?", userID).Update(column, value).Error
	})
}
