package markdown

import (
	"net/url"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// newPolicy はMarkdown変換後のHTMLに適用する許可リストを構築する。
// ポリシーの内容:
//   - 許可タグ: 見出し、段落、リスト、引用、コード、表、強調、打ち消し線、画像、リンク
//   - script, iframe, style および全てのon*イベント属性は除去
//   - URLはhttp/https/mailtoと、/uploads/ 等のサイト内相対パスのみ許可
//   - 外部リンクには target="_blank" と rel="noopener noreferrer" を付与
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del", "sup", "sub",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	// GFMのタスクリスト
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	// コードブロックの言語指定
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")

	// 表の寄せ
	p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|center|right)$`)).OnElements("th", "td")

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return u.Host != ""
	})
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return p
}
