// Package registration は利用者の資格情報登録フローを提供する。
// 検証済みの資格情報のみを、利用者IDから導出した不透明トークンを
// キーとして永続化する。利用者の生IDは保存されない。
package registration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/sportcal/internal/model"
)

// SessionValidator は候補資格情報の検証インターフェース。
type SessionValidator interface {
	ValidateSession(ctx context.Context, credential string) (*model.Profile, error)
}

// CredentialStore は資格情報の永続化インターフェース。
type CredentialStore interface {
	Get(ctx context.Context, token string) (*model.Credential, error)
	Put(ctx context.Context, token string, credential string) error
}

// TokenDeriver は利用者IDから不透明トークンを導出するインターフェース。
type TokenDeriver interface {
	Derive(userID int64) string
}

// MetricsRecorder は登録フローが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordRegistration()
	RecordValidationFailure()
}

// Service は資格情報登録のユースケースを実装する。
type Service struct {
	deriver   TokenDeriver
	validator SessionValidator
	creds     CredentialStore
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	deriver TokenDeriver,
	validator SessionValidator,
	creds CredentialStore,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		deriver:   deriver,
		validator: validator,
		creds:     creds,
		metrics:   metrics,
		logger:    logger,
	}
}

// Token は利用者IDに対応する不透明トークンを返す。
func (s *Service) Token(userID int64) string {
	return s.deriver.Derive(userID)
}

// IsRegistered は利用者が資格情報を登録済みかどうかを返す。
func (s *Service) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	cred, err := s.creds.Get(ctx, s.deriver.Derive(userID))
	if err != nil {
		return false, fmt.Errorf("登録状態の確認に失敗しました: %w", err)
	}
	return cred != nil, nil
}

// Register は候補資格情報を検証し、成功時のみトークンをキーに永続化する。
// 再登録は既存資格情報の上書きとして扱う（以前のトークンはIDが同じなら不変）。
// 検証に失敗した場合は何も保存せず、VALIDATION_FAILEDを返す。
func (s *Service) Register(ctx context.Context, userID int64, credential string) (*model.Profile, error) {
	profile, err := s.validator.ValidateSession(ctx, credential)
	if err != nil {
		s.metrics.RecordValidationFailure()
		s.logger.Info("資格情報の検証に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := s.creds.Put(ctx, s.deriver.Derive(userID), credential); err != nil {
		return nil, fmt.Errorf("資格情報の保存に失敗しました: %w", err)
	}

	s.metrics.RecordRegistration()
	s.logger.Info("資格情報を登録しました")

	return profile, nil
}
