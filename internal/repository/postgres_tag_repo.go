package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

const tagColumns = `id, name, slug, color, created_at, updated_at`

func scanTag(row interface{ Scan(...any) error }) (*model.Tag, error) {
	tag := &model.Tag{}
	if err := row.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.Color, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *PostgresTagRepo) queryTags(ctx context.Context, op, query string, args ...any) ([]*model.Tag, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	tags := []*model.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

// List は全タグを名前順で返す。
func (r *PostgresTagRepo) List(ctx context.Context) ([]*model.Tag, error) {
	return r.queryTags(ctx, "list tags",
		`SELECT `+tagColumns+` FROM tags ORDER BY name ASC`,
	)
}

// FindByID は指定IDのタグを取得する。見つからない場合はnilを返す。
func (r *PostgresTagRepo) FindByID(ctx context.Context, id int64) (*model.Tag, error) {
	tag, err := scanTag(r.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tag by ID: %w", err)
	}
	return tag, nil
}

// FindBySlug はスラッグでタグを取得する。見つからない場合はnilを返す。
func (r *PostgresTagRepo) FindBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	tag, err := scanTag(r.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE slug = $1`, slug,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tag by slug: %w", err)
	}
	return tag, nil
}

// FindBySlugs は指定スラッグのタグを返す。
func (r *PostgresTagRepo) FindBySlugs(ctx context.Context, slugs []string) ([]*model.Tag, error) {
	if len(slugs) == 0 {
		return []*model.Tag{}, nil
	}
	return r.queryTags(ctx, "find tags by slugs",
		`SELECT `+tagColumns+` FROM tags WHERE slug = ANY($1) ORDER BY name ASC`,
		pq.Array(slugs),
	)
}

// Create はタグを作成する。名前またはスラッグが重複する場合はErrDuplicateを返す。
func (r *PostgresTagRepo) Create(ctx context.Context, tag *model.Tag) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tags (name, slug, color) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		tag.Name, tag.Slug, tag.Color,
	).Scan(&tag.ID, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		return translatePQError("insert tag", err)
	}
	return nil
}

// CreateIfNotExists は同名・同スラッグのタグが存在しない場合のみ作成する。
func (r *PostgresTagRepo) CreateIfNotExists(ctx context.Context, tag *model.Tag) (bool, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tags (name, slug, color) VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING
		 RETURNING id, created_at, updated_at`,
		tag.Name, tag.Slug, tag.Color,
	).Scan(&tag.ID, &tag.CreatedAt, &tag.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translatePQError("insert tag", err)
	}
	return true, nil
}

// Update はタグを更新する。
func (r *PostgresTagRepo) Update(ctx context.Context, tag *model.Tag) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE tags SET name = $2, slug = $3, color = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		tag.ID, tag.Name, tag.Slug, tag.Color,
	).Scan(&tag.UpdatedAt)
	if err != nil {
		return translatePQError("update tag", err)
	}
	return nil
}

// DeleteByID は指定IDのタグを削除する。post_tagsはCASCADE削除される。
func (r *PostgresTagRepo) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TagRepository = (*PostgresTagRepo)(nil)
