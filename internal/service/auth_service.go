package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"timetable-admin/backend/internal/dto"
	"timetable-admin/backend/pkg/jwt"
)

var (
	ErrRevocationUnavailable = errors.New("Token 注销服务不可用")
	ErrInvalidRole           = errors.New("角色无效")
)

// TokenRevoker Token 黑名单能力，由 pkg/redis.Client 实现
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 认证业务接口
//
// 账号与登录由外部系统负责，本服务只签发运维 Token 并支持注销。
type AuthService interface {
	// IssueToken 签发 Access Token（slotctl issue-token 使用）
	IssueToken(userID, role string, ttl time.Duration) (*dto.TokenResponse, error)
	// Logout 将当前 Token 加入黑名单直至其自然过期
	Logout(ctx context.Context, claims *jwt.Claims) error
}

type authService struct {
	jwtMgr  *jwt.Manager
	revoker TokenRevoker
	logger  *zap.Logger
}

// NewAuthService 创建 AuthService 实例；revoker 为 nil 时注销不可用
func NewAuthService(jwtMgr *jwt.Manager, revoker TokenRevoker, logger *zap.Logger) AuthService {
	return &authService{jwtMgr: jwtMgr, revoker: revoker, logger: logger}
}

func (s *authService) IssueToken(userID, role string, ttl time.Duration) (*dto.TokenResponse, error) {
	if role != jwt.RoleAdmin && role != jwt.RoleViewer {
		return nil, ErrInvalidRole
	}
	token, err := s.jwtMgr.GenerateAccessToken(userID, role, ttl)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	claims, err := s.jwtMgr.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(claims.RemainingTTL().Seconds()),
		UserID:      userID,
		Role:        role,
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.revoker == nil {
		return ErrRevocationUnavailable
	}
	if err := s.revoker.BlacklistToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return err
	}
	s.logger.Info("Token 已注销", zap.String("user_id", claims.UserID), zap.String("jti", claims.ID))
	return nil
}
