// Package markdown は記事本文のMarkdownを安全なHTMLに変換する。
package markdown

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// Renderer はMarkdownをHTMLに変換し、許可リストでサニタイズする。
// 生成後の状態は変更されないため、複数goroutineから同時に使用できる。
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer はRendererを生成する。
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
		),
		goldmark.WithRendererOptions(
			// 生HTMLはそのまま出力し、後段のサニタイザで除去する
			htmlrenderer.WithUnsafe(),
		),
	)
	return &Renderer{md: md, policy: newPolicy()}
}

// Render はMarkdownをサニタイズ済みのHTMLに変換する。空文字列の入力には空文字列を返す。
func (r *Renderer) Render(source string) (string, error) {
	if source == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// Sanitize はHTMLを許可リストでサニタイズする。
func (r *Renderer) Sanitize(rawHTML string) string {
	return r.policy.Sanitize(rawHTML)
}
