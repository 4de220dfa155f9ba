package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern は部分一致検索用のLIKEパターンを返す。
// ワイルドカード文字はバックスラッシュでエスケープする。
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
