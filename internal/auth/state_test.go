package auth

import "testing"

func TestLoginAttempt_AllowedTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []LoginState
	}{
		{"provisioned", []LoginState{StateAuthorizationRequested, StateProviderCallbackReceived, StateAllowed, StateProvisioned}},
		{"denied", []LoginState{StateAuthorizationRequested, StateProviderCallbackReceived, StateDenied, StateRejected}},
		{"exchange failure", []LoginState{StateAuthorizationRequested, StateRejected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewLoginAttempt()
			for _, s := range tt.path {
				if err := a.Advance(s); err != nil {
					t.Fatalf("Advance(%s) error = %v", s, err)
				}
			}
			if !a.Terminal() {
				t.Errorf("state %q should be terminal", a.State)
			}
			if len(a.History()) != len(tt.path)+1 {
				t.Errorf("history = %v", a.History())
			}
		})
	}
}

func TestLoginAttempt_RejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []LoginState
		to    LoginState
	}{
		{"skip authorization", nil, StateAllowed},
		{"provision without allow", []LoginState{StateAuthorizationRequested, StateProviderCallbackReceived}, StateProvisioned},
		{"denied to provisioned", []LoginState{StateAuthorizationRequested, StateProviderCallbackReceived, StateDenied}, StateProvisioned},
		{"leave provisioned", []LoginState{StateAuthorizationRequested, StateProviderCallbackReceived, StateAllowed, StateProvisioned}, StateRejected},
		{"leave rejected", []LoginState{StateAuthorizationRequested, StateRejected}, StateAuthorizationRequested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewLoginAttempt()
			for _, s := range tt.setup {
				if err := a.Advance(s); err != nil {
					t.Fatalf("setup Advance(%s) error = %v", s, err)
				}
			}
			before := a.State
			if err := a.Advance(tt.to); err == nil {
				t.Fatalf("Advance(%s) from %s should fail", tt.to, before)
			}
			if a.State != before {
				t.Errorf("state changed to %q after rejected transition", a.State)
			}
		})
	}
}

func TestLoginAttempt_HistoryIsCopy(t *testing.T) {
	a := NewLoginAttempt()
	h := a.History()
	h[0] = StateRejected
	if a.History()[0] != StateUnauthenticated {
		t.Error("History() must not expose internal slice")
	}
}
