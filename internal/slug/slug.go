// Package slug はURL用スラッグの生成と検証を提供する。
package slug

import (
	"regexp"
	"strings"
)

var validPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Make はタイトル等の文字列からスラッグを生成する。
// 英数字以外の連続は1つのハイフンにまとめ、前後のハイフンは除去する。
// ASCII英数字を含まない場合は空文字列を返す。
func Make(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Valid はスラッグの形式が正しいかを返す。
func Valid(s string) bool {
	return validPattern.MatchString(s)
}
