// Package auth はOAuth認証フローと許可リストによるログイン可否の判定を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/repository"
)

// ErrUpstream はOAuthプロバイダーとの通信（トークン交換・プロフィール取得）の失敗を表す。
var ErrUpstream = errors.New("oauth provider error")

// ErrEmailNotAllowed はメールアドレスが許可リストにないことを表す。
var ErrEmailNotAllowed = errors.New("email not in allowlist")

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// SessionCreator はログイン成功時にセッションを発行するインターフェース。
type SessionCreator interface {
	Create(ctx context.Context, userID int64) (*model.Session, error)
}

// LoginRecorder はログイン結果をメトリクスに記録するインターフェース。
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// ログイン結果のメトリクスラベル
const (
	LoginOutcomeSuccess  = "success"
	LoginOutcomeRejected = "rejected"
	LoginOutcomeError    = "error"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	Allowlist   Allowlist // ログインを許可するアドレス・ドメイン
	AdminEmails Allowlist // 管理者ロールを付与するアドレス・ドメイン
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	userRepo repository.UserRepository
	sessions SessionCreator
	metrics  LoginRecorder
	config   ServiceConfig
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	sessions SessionCreator,
	metrics LoginRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:    oauth,
		userRepo: userRepo,
		sessions: sessions,
		metrics:  metrics,
		config:   config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
// 呼び出し元はこのURLへリダイレクトし、ログイン試行はAuthorizationRequestedに遷移する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、ログイン試行の最終状態を返す。
//
// 成功時はProvisioned状態でセッションを含むLoginAttemptを返す。
// 許可リスト外のメールアドレスの場合はRejected状態とErrEmailNotAllowedを返し、
// ユーザーもセッションも作成しない。トークン交換の失敗はErrUpstreamでラップして返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (*LoginAttempt, error) {
	attempt := NewLoginAttempt()
	attempt.mustAdvance(StateAuthorizationRequested)

	// 1. 認可コードをプロフィールに交換
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		attempt.mustAdvance(StateRejected)
		s.record(LoginOutcomeError)
		return attempt, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	attempt.mustAdvance(StateProviderCallbackReceived)
	attempt.Profile = profile

	// 2. 許可リストの判定（未検証のメールアドレスは欠落として扱う）
	email := profile.Email
	if !profile.EmailVerified {
		email = ""
	}
	if !IsAllowed(email, s.config.Allowlist) {
		attempt.mustAdvance(StateDenied)
		attempt.mustAdvance(StateRejected)
		s.record(LoginOutcomeRejected)
		slog.Warn("login rejected",
			slog.String("provider", profile.Provider),
			slog.String("email_domain", emailDomain(profile.Email)),
			slog.Bool("email_verified", profile.EmailVerified),
		)
		return attempt, ErrEmailNotAllowed
	}
	attempt.mustAdvance(StateAllowed)

	// 3. ユーザーの特定または作成
	user, err := s.provisionUser(ctx, profile)
	if err != nil {
		s.record(LoginOutcomeError)
		return attempt, fmt.Errorf("failed to provision user: %w", err)
	}
	attempt.User = user

	// 4. セッションを発行
	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		s.record(LoginOutcomeError)
		return attempt, fmt.Errorf("failed to create session: %w", err)
	}
	attempt.Session = session
	attempt.mustAdvance(StateProvisioned)

	s.record(LoginOutcomeSuccess)
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("provider", profile.Provider),
	)

	return attempt, nil
}

// provisionUser はメールアドレスで既存ユーザーを検索し、存在しなければ作成する。
// 既存ユーザーのgoogle_idは未設定の場合のみ設定し、異なる値でも上書きしない。
func (s *Service) provisionUser(ctx context.Context, profile *OAuthUserInfo) (*model.User, error) {
	email := normalizeEmail(profile.Email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		user, err = s.createUser(ctx, email, profile)
		if err != nil {
			return nil, err
		}
	} else if err := s.linkExternalID(ctx, user, profile.ProviderUserID); err != nil {
		return nil, err
	}

	if s.config.AdminEmails.Contains(email) && !user.IsAdmin() {
		if err := s.userRepo.UpdateRole(ctx, user.ID, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to promote user: %w", err)
		}
		user.Role = model.RoleAdmin
		slog.Info("user promoted to admin", slog.Int64("user_id", user.ID))
	}

	return user, nil
}

// createUser は新規ユーザーを作成する。
// 同時ログインで先に作成された場合は既存ユーザーを返す。
func (s *Service) createUser(ctx context.Context, email string, profile *OAuthUserInfo) (*model.User, error) {
	role := model.RoleUser
	if s.config.AdminEmails.Contains(email) {
		role = model.RoleAdmin
	}

	user := &model.User{
		Email:     email,
		Name:      displayName(profile),
		AvatarURL: profile.AvatarURL,
		GoogleID:  profile.ProviderUserID,
		Role:      role,
	}

	err := s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		existing, findErr := s.userRepo.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, fmt.Errorf("failed to find user after conflict: %w", findErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// linkExternalID は既存ユーザーに外部IDを紐付ける。
func (s *Service) linkExternalID(ctx context.Context, user *model.User, providerUserID string) error {
	if providerUserID == "" {
		return nil
	}

	if user.GoogleID == "" {
		set, err := s.userRepo.SetGoogleIDIfUnset(ctx, user.ID, providerUserID)
		if err != nil {
			return fmt.Errorf("failed to link google id: %w", err)
		}
		if set {
			user.GoogleID = providerUserID
		}
		return nil
	}

	if user.GoogleID != providerUserID {
		slog.Warn("provider subject differs from stored google id; keeping stored value",
			slog.Int64("user_id", user.ID),
		)
	}
	return nil
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(outcome)
	}
}

// displayName はプロフィールから表示名を決定する。
func displayName(profile *OAuthUserInfo) string {
	if name := strings.TrimSpace(profile.Name); name != "" {
		return name
	}
	return "User"
}

// emailDomain はログ出力用にメールアドレスのドメイン部分のみを返す。
func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return strings.ToLower(email[at+1:])
	}
	return ""
}
