// Package seed は既定タグの初期投入を提供する。
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/repository"
	"github.com/hitoshi/biscuitblog/internal/slug"
)

//go:embed data/tags.yaml
var defaultTagsYAML []byte

// Tag は初期投入するタグの定義。
type Tag struct {
	Name  string `yaml:"name"`
	Slug  string `yaml:"slug"`
	Color string `yaml:"color"`
}

type tagFile struct {
	Tags []Tag `yaml:"tags"`
}

// DefaultTags は組み込みの既定タグ一覧を返す。
func DefaultTags() ([]Tag, error) {
	return parseTags(defaultTagsYAML)
}

// LoadTags はYAMLファイルからタグ一覧を読み込む。
func LoadTags(path string) ([]Tag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return parseTags(data)
}

func parseTags(data []byte) ([]Tag, error) {
	var f tagFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tag seeds: %w", err)
	}
	for i, s := range f.Tags {
		if s.Name == "" {
			return nil, fmt.Errorf("tag seed #%d has no name", i+1)
		}
	}
	return f.Tags, nil
}

// Tags はタグを投入する。同名のタグが既に存在する場合はスキップし、
// 新規に作成した件数を返す。何度実行しても結果は同じになる。
func Tags(ctx context.Context, repo repository.TagRepository, seeds []Tag) (int, error) {
	created := 0
	for _, s := range seeds {
		tag := &model.Tag{
			Name:  s.Name,
			Slug:  s.Slug,
			Color: s.Color,
		}
		if tag.Slug == "" {
			tag.Slug = slug.Make(s.Name)
		}
		if tag.Color == "" {
			tag.Color = model.DefaultTagColor
		}

		ok, err := repo.CreateIfNotExists(ctx, tag)
		if err != nil {
			return created, fmt.Errorf("failed to seed tag %q: %w", s.Name, err)
		}
		if ok {
			created++
		}
	}

	slog.Info("tags seeded",
		slog.Int("created", created),
		slog.Int("total", len(seeds)),
	)
	return created, nil
}
