package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// FixtureCode はFixtureProviderが発行する固定の認可コード。
const FixtureCode = "fixture"

// FixtureProfile はFixtureProviderが返す固定のプロフィール。
type FixtureProfile struct {
	Email     string
	Name      string
	AvatarURL string
}

// FixtureProvider は外部のOAuthプロバイダーを使わずに固定のプロフィールを返すプロバイダー。
// 開発環境でGoogleの認証情報なしにログインフローを通すために使用する。
// 許可リストの判定とユーザーの作成は通常どおりServiceが行う。
type FixtureProvider struct {
	redirectURL string
	profile     FixtureProfile
}

// NewFixtureProvider はFixtureProviderを生成する。
// redirectURLにはコールバックエンドポイントの絶対URLを指定する。
func NewFixtureProvider(redirectURL string, profile FixtureProfile) *FixtureProvider {
	return &FixtureProvider{redirectURL: redirectURL, profile: profile}
}

// GetLoginURL はプロバイダーを経由せず、固定コード付きでコールバックへ戻るURLを返す。
func (p *FixtureProvider) GetLoginURL(state string) string {
	q := url.Values{}
	q.Set("code", FixtureCode)
	q.Set("state", state)

	sep := "?"
	if strings.Contains(p.redirectURL, "?") {
		sep = "&"
	}
	return p.redirectURL + sep + q.Encode()
}

// ExchangeCode は固定コードに対して固定のプロフィールを返す。
func (p *FixtureProvider) ExchangeCode(_ context.Context, code string) (*OAuthUserInfo, error) {
	if code != FixtureCode {
		return nil, errors.New("unknown fixture authorization code")
	}
	if p.profile.Email == "" {
		return nil, errors.New("fixture profile has no email")
	}

	return &OAuthUserInfo{
		ProviderUserID: "fixture:" + normalizeEmail(p.profile.Email),
		Email:          p.profile.Email,
		EmailVerified:  true,
		Name:           p.profile.Name,
		AvatarURL:      p.profile.AvatarURL,
		Provider:       "fixture",
	}, nil
}

var (
	_ OAuthProvider = (*GoogleOAuthProvider)(nil)
	_ OAuthProvider = (*FixtureProvider)(nil)
)
