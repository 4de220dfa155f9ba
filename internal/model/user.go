// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザー。自分のコンテンツのみ編集できる。
	RoleUser Role = "user"
	// RoleAdmin は管理者。全コンテンツとタグを編集できる。
	RoleAdmin Role = "admin"
)

// User はサービス利用ユーザーを表す。
// GoogleIDは未設定の場合は空文字列で、一度設定されたら上書きしない。
type User struct {
	ID        int64
	Email     string
	Name      string
	AvatarURL string
	GoogleID  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin は管理者かどうかを返す。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanModify は指定著者のリソースを更新・削除できるかを返す。
// 所有者本人または管理者のみ許可する。
func (u *User) CanModify(authorID int64) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin() || u.ID == authorID
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻においてセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
