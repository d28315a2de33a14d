// Package auth は匿名セッションの発行と検証を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/neocal/internal/model"
	"github.com/hitoshi/neocal/internal/repository"
)

// tokenBytes はセッショントークンの乱数バイト長。16進文字列で64文字になる。
const tokenBytes = 32

// SessionMetrics はセッション発行のメトリクス記録インターフェース。
type SessionMetrics interface {
	RecordSessionIssued(newUser bool)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は匿名セッションに関するビジネスロジックを提供する。
type Service struct {
	sessionRepo repository.SessionRepository
	metrics     SessionMetrics
	config      ServiceConfig
	nowFunc     func() time.Time
	logger      *slog.Logger
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	sessionRepo repository.SessionRepository,
	metrics SessionMetrics,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		metrics:     metrics,
		config:      config,
		nowFunc:     time.Now,
		logger:      logger,
	}
}

// CreateAnonymousSession は匿名セッションを発行する。
// presentedTokenが有効な未失効トークンであれば、そのユーザーに新しいセッションを追加する。
// それ以外の場合は新しいユーザーとセッションを1トランザクションで作成する。
func (s *Service) CreateAnonymousSession(ctx context.Context, presentedToken string) (*model.Session, error) {
	now := s.nowFunc()

	if presentedToken != "" {
		existing, err := s.sessionRepo.FindByToken(ctx, presentedToken)
		if err != nil {
			return nil, fmt.Errorf("failed to find presented session: %w", err)
		}
		if existing != nil && !existing.IsExpired(now) {
			session, err := s.newSession(existing.UserID, now)
			if err != nil {
				return nil, err
			}
			if err := s.sessionRepo.Create(ctx, session); err != nil {
				return nil, fmt.Errorf("failed to save session: %w", err)
			}
			s.logger.Info("既存ユーザーに匿名セッションを発行しました",
				slog.String("user_id", session.UserID),
			)
			s.recordIssued(false)
			return session, nil
		}
	}

	user := model.NewUser(uuid.New().String(), now)
	session, err := s.newSession(user.ID, now)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.CreateWithUser(ctx, user, session); err != nil {
		return nil, fmt.Errorf("failed to create user and session: %w", err)
	}

	s.logger.Info("新規ユーザーを作成し匿名セッションを発行しました",
		slog.String("user_id", user.ID),
	)
	s.recordIssued(true)
	return session, nil
}

// Authenticate はトークンを検証してセッションを返す。
// 未知のトークンはUNAUTHORIZED、期限切れはSESSION_EXPIREDのAPIErrorを返す。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}
	if session.IsExpired(s.nowFunc()) {
		return nil, model.NewSessionExpiredError()
	}
	return session, nil
}

// Logout はトークンに対応するセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return model.NewUnauthorizedError()
	}

	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("セッションを破棄しました")
	return nil
}

func (s *Service) newSession(userID string, now time.Time) (*model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	return &model.Session{
		ID:        uuid.New().String(),
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
	}, nil
}

func (s *Service) recordIssued(newUser bool) {
	if s.metrics != nil {
		s.metrics.RecordSessionIssued(newUser)
	}
}

// generateToken は暗号的に安全なセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
