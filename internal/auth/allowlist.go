package auth

import "strings"

// Allowlist はログインを許可するメールアドレスとドメインの集合。
// エントリは正規化（前後空白除去・小文字化）済みで保持する。
// "@example.com" 形式のエントリはドメイン一致を表す。
type Allowlist map[string]struct{}

// NewAllowlist はエントリ一覧からAllowlistを生成する。
// 空エントリは無視する。
func NewAllowlist(entries []string) Allowlist {
	al := make(Allowlist, len(entries))
	for _, e := range entries {
		if n := normalizeEmail(e); n != "" {
			al[n] = struct{}{}
		}
	}
	return al
}

// ParseAllowlist はカンマ区切りの文字列からAllowlistを生成する。
func ParseAllowlist(raw string) Allowlist {
	return NewAllowlist(strings.Split(raw, ","))
}

// IsAllowed はメールアドレスが許可リストに含まれるかを判定する。
//
// 判定順序:
//  1. 空のメールアドレスは正規化前に拒否する
//  2. 正規化したアドレスが完全一致すれば許可する
//  3. "@"以降のドメイン部分が "@domain" エントリと完全一致すれば許可する
//
// サブドメインはドメイン一致の対象にならない。副作用を持たない純粋関数である。
func IsAllowed(email string, allowlist Allowlist) bool {
	if email == "" {
		return false
	}

	normalized := normalizeEmail(email)
	if _, ok := allowlist[normalized]; ok {
		return true
	}

	at := strings.Index(normalized, "@")
	if at < 0 {
		return false
	}
	domain := normalized[at:]
	if domain == "@" {
		return false
	}
	_, ok := allowlist[domain]
	return ok
}

// Contains はAllowlistのメソッド形式でIsAllowedを呼び出す。
func (a Allowlist) Contains(email string) bool {
	return IsAllowed(email, a)
}

// normalizeEmail はメールアドレスの前後空白を除去し小文字化する。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
