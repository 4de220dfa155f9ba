package auth

import (
	"fmt"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// LoginState は1回のログイン試行の状態を表す。
type LoginState string

const (
	StateUnauthenticated          LoginState = "unauthenticated"
	StateAuthorizationRequested   LoginState = "authorization_requested"
	StateProviderCallbackReceived LoginState = "provider_callback_received"
	StateAllowed                  LoginState = "allowed"
	StateDenied                   LoginState = "denied"
	StateProvisioned              LoginState = "provisioned"
	StateRejected                 LoginState = "rejected"
)

// loginTransitions は許可される状態遷移。
// AuthorizationRequestedからRejectedへの遷移はトークン交換失敗を表す。
var loginTransitions = map[LoginState][]LoginState{
	StateUnauthenticated:          {StateAuthorizationRequested},
	StateAuthorizationRequested:   {StateProviderCallbackReceived, StateRejected},
	StateProviderCallbackReceived: {StateAllowed, StateDenied},
	StateAllowed:                  {StateProvisioned},
	StateDenied:                   {StateRejected},
}

// LoginAttempt は1回のログイン試行の状態と、各段階で得られた結果を保持する。
type LoginAttempt struct {
	State   LoginState
	Profile *OAuthUserInfo
	User    *model.User
	Session *model.Session

	history []LoginState
}

// NewLoginAttempt はUnauthenticated状態のログイン試行を生成する。
func NewLoginAttempt() *LoginAttempt {
	return &LoginAttempt{
		State:   StateUnauthenticated,
		history: []LoginState{StateUnauthenticated},
	}
}

// Advance は次の状態へ遷移する。許可されない遷移の場合はエラーを返し、状態は変わらない。
func (a *LoginAttempt) Advance(to LoginState) error {
	for _, next := range loginTransitions[a.State] {
		if next == to {
			a.State = to
			a.history = append(a.history, to)
			return nil
		}
	}
	return fmt.Errorf("invalid login transition: %s -> %s", a.State, to)
}

// mustAdvance はサービス内部の固定遷移で使用する。遷移表と矛盾する呼び出しはプログラムの誤り。
func (a *LoginAttempt) mustAdvance(to LoginState) {
	if err := a.Advance(to); err != nil {
		panic(err)
	}
}

// History はこれまでに経由した状態を順に返す。
func (a *LoginAttempt) History() []LoginState {
	return append([]LoginState(nil), a.history...)
}

// Terminal は最終状態（Provisioned または Rejected）に到達したかを返す。
func (a *LoginAttempt) Terminal() bool {
	return a.State == StateProvisioned || a.State == StateRejected
}
