package model

import (
	"errors"
	"testing"
	"time"
)

func TestUser_CanModify(t *testing.T) {
	owner := &User{ID: 1, Role: RoleUser}
	other := &User{ID: 2, Role: RoleUser}
	admin := &User{ID: 3, Role: RoleAdmin}

	tests := []struct {
		name     string
		user     *User
		authorID int64
		want     bool
	}{
		{"owner", owner, 1, true},
		{"non-owner", other, 1, false},
		{"admin", admin, 1, true},
		{"nil user", nil, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.CanModify(tt.authorID); got != tt.want {
				t.Errorf("CanModify(%d) = %v, want %v", tt.authorID, got, tt.want)
			}
		})
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(time.Minute)}

	if s.Expired(now) {
		t.Error("session should be valid before expiry")
	}
	if !s.Expired(now.Add(time.Minute)) {
		t.Error("session should be expired at expiry time")
	}
}

func TestPage_Offset(t *testing.T) {
	if got := (Page{Number: 1, Size: 10}).Offset(); got != 0 {
		t.Errorf("Offset() = %d, want 0", got)
	}
	if got := (Page{Number: 3, Size: 20}).Offset(); got != 40 {
		t.Errorf("Offset() = %d, want 40", got)
	}
}

func TestAPIError_ErrorsAs(t *testing.T) {
	var err error = NewConflictError("slug")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("expected errors.As to match *APIError")
	}
	if apiErr.Code != ErrCodeConflict {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeConflict)
	}
	if apiErr.Error() != "[CONFLICT] slug already exists" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}
