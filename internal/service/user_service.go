// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"image-review/internal/model"
	"image-review/internal/repository"
	"image-review/pkg/hash"
	"image-review/pkg/log"
	"image-review/pkg/token"

	"gorm.io/gorm"
)

// LoginResult 包含登录成功后签发的 token 与用户信息。
type LoginResult struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetProfile(ctx context.Context, userID uint) (*model.User, error)
	// Logout 吊销 access token；refreshToken 非空时一并吊销。
	Logout(ctx context.Context, accessToken, refreshToken string) error
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
	// EnsureAdmin 确保存在给定邮箱的管理员账号，已存在时只提升角色。
	EnsureAdmin(ctx context.Context, name, email, password string) error
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 处理用户注册的业务逻辑。新用户总是普通审核员角色。
func (s *userService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	// 1. 检查邮箱是否已存在
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	newUser := &model.User{
		Name:     name,
		Email:    email,
		Password: hashedPassword,
		Role:     model.RoleUser,
		State:    model.UserStateActive,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return newUser, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if user.State == model.UserStateDisabled {
		return nil, ErrUserDisabled
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: accessToken, RefreshToken: refreshToken, User: user}, nil
}

// GetProfile 根据用户 ID 获取用户详细信息。
func (s *userService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout 将 token 加入黑名单，黑名单的过期时间即 token 的剩余有效期。
// refresh token 必须属于同一用户。
func (s *userService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.jwtManager.VerifyAccessToken(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	var refreshClaims *token.CustomClaims
	if refreshToken != "" {
		refreshClaims, err = s.jwtManager.VerifyRefreshToken(refreshToken)
		if err != nil || refreshClaims.UserID != claims.UserID {
			return ErrInvalidToken
		}
	}

	if err := s.revoke(ctx, accessToken, claims); err != nil {
		return err
	}
	if refreshClaims != nil {
		return s.revoke(ctx, refreshToken, refreshClaims)
	}
	return nil
}

func (s *userService) revoke(ctx context.Context, tokenString string, claims *token.CustomClaims) error {
	return s.tokenRepo.Revoke(ctx, tokenString, time.Until(claims.ExpiresAt.Time))
}

func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	return s.tokenRepo.IsRevoked(ctx, tokenString)
}

// RefreshToken 验证 refresh token 并签发新的 access token 和 refresh token。
// 旧的 refresh token 在换取成功后即被吊销。
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken, newRefreshToken string, err error) {
	// 1. 验证 refresh token 是否有效，access token 不能用于刷新
	claims, err := s.jwtManager.VerifyRefreshToken(refreshTokenString)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	if revoked, err := s.tokenRepo.IsRevoked(ctx, refreshTokenString); err != nil {
		return "", "", err
	} else if revoked {
		return "", "", ErrInvalidToken
	}

	// 2. 检查用户是否存在且未被禁用，角色以数据库为准
	user, err := s.GetProfile(ctx, claims.UserID)
	if err != nil {
		return "", "", err
	}
	if user.State == model.UserStateDisabled {
		return "", "", ErrUserDisabled
	}

	// 3. 签发新的 token，并吊销旧的 refresh token
	newAccessToken, newRefreshToken, err = s.issueTokens(user)
	if err != nil {
		return "", "", err
	}
	if err := s.revoke(ctx, refreshTokenString, claims); err != nil {
		return "", "", err
	}
	return newAccessToken, newRefreshToken, nil
}

func (s *userService) issueTokens(user *model.User) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" {
		return nil
	}
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role == model.RoleAdmin {
			return nil
		}
		log.Infof("[UserService] 将已有用户 %s 提升为管理员", email)
		return s.userRepo.UpdateRole(ctx, user.ID, model.RoleAdmin)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("查询管理员账号失败: %w", err)
	}

	if password == "" {
		return fmt.Errorf("管理员账号 %s 不存在且未配置密码", email)
	}
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	if name == "" {
		name = email
	}
	admin := &model.User{Name: name, Email: email, Password: hashedPassword, Role: model.RoleAdmin}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("创建管理员账号失败: %w", err)
	}
	log.Infof("[UserService] 已创建管理员账号 %s", email)
	return nil
}
