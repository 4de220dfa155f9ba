package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

const postColumns = `p.id, p.title, p.slug, p.excerpt, p.content, p.cover_image,
	p.published, p.published_at, p.author_id, p.created_at, p.updated_at`

func scanPost(row interface{ Scan(...any) error }) (*model.Post, error) {
	post := &model.Post{}
	var excerpt, coverImage sql.NullString
	var publishedAt sql.NullTime
	if err := row.Scan(
		&post.ID, &post.Title, &post.Slug, &excerpt, &post.Content, &coverImage,
		&post.Published, &publishedAt, &post.AuthorID, &post.CreatedAt, &post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	post.Excerpt = nullStringValue(excerpt)
	post.CoverImage = nullStringValue(coverImage)
	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}
	post.Tags = []model.Tag{}
	return post, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	return r.findOne(ctx, "find post by ID", `p.id = $1`, id)
}

// FindBySlug はスラッグで記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return r.findOne(ctx, "find post by slug", `p.slug = $1`, slug)
}

func (r *PostgresPostRepo) findOne(ctx context.Context, op, cond string, arg any) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE `+cond, arg,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	if err := r.attachTags(ctx, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// List は条件に一致する記事を published_at 降順（NULLは末尾）、id降順で返す。
func (r *PostgresPostRepo) List(ctx context.Context, filter model.PostListFilter) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE 1 = 1`
	var args []any
	argIndex := 1

	// 公開状態
	switch {
	case !filter.IncludeDrafts:
		query += " AND p.published = true"
	case filter.DraftsOwnerID != 0:
		query += fmt.Sprintf(" AND (p.published = true OR p.author_id = $%d)", argIndex)
		args = append(args, filter.DraftsOwnerID)
		argIndex++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(
			` AND (p.title ILIKE $%[1]d ESCAPE '\' OR p.excerpt ILIKE $%[1]d ESCAPE '\' OR p.content ILIKE $%[1]d ESCAPE '\')`,
			argIndex,
		)
		args = append(args, containsPattern(filter.Search))
		argIndex++
	}

	if filter.TagSlug != "" {
		query += fmt.Sprintf(
			` AND EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			              WHERE pt.post_id = p.id AND t.slug = $%d)`,
			argIndex,
		)
		args = append(args, filter.TagSlug)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY p.published_at DESC NULLS LAST, p.id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	if err := r.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachTags は記事のタグをまとめて読み込む。
func (r *PostgresPostRepo) attachTags(ctx context.Context, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]int64, len(posts))
	byID := make(map[int64]*model.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT pt.post_id, t.id, t.name, t.slug, t.color, t.created_at, t.updated_at
		 FROM post_tags pt
		 JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.post_id = ANY($1)
		 ORDER BY t.name ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to load post tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		var tag model.Tag
		if err := rows.Scan(&postID, &tag.ID, &tag.Name, &tag.Slug, &tag.Color, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan post tag: %w", err)
		}
		if p, ok := byID[postID]; ok {
			p.Tags = append(p.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate post tags: %w", err)
	}
	return nil
}

// Create は記事とタグの紐付けを同一トランザクションで作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post, tagIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO posts (title, slug, excerpt, content, cover_image, published, published_at, author_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		post.Title, post.Slug, nullString(post.Excerpt), post.Content, nullString(post.CoverImage),
		post.Published, post.PublishedAt, post.AuthorID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return translatePQError("insert post", err)
	}

	if err := insertPostTags(ctx, tx, post.ID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	post.Tags = []model.Tag{}
	return r.attachTags(ctx, []*model.Post{post})
}

// Update は記事を更新する。tagIDsがnilの場合はタグの紐付けを変更しない。
func (r *PostgresPostRepo) Update(ctx context.Context, post *model.Post, tagIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`UPDATE posts SET
		    title = $2, slug = $3, excerpt = $4, content = $5, cover_image = $6,
		    published = $7, published_at = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		post.ID, post.Title, post.Slug, nullString(post.Excerpt), post.Content,
		nullString(post.CoverImage), post.Published, post.PublishedAt,
	).Scan(&post.UpdatedAt)
	if err != nil {
		return translatePQError("update post", err)
	}

	if tagIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, post.ID); err != nil {
			return fmt.Errorf("failed to clear post tags: %w", err)
		}
		if err := insertPostTags(ctx, tx, post.ID, tagIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	post.Tags = []model.Tag{}
	return r.attachTags(ctx, []*model.Post{post})
}

func insertPostTags(ctx context.Context, tx *sql.Tx, postID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			postID, tagID,
		)
		if err != nil {
			return translatePQError("link post tag", err)
		}
	}
	return nil
}

// DeleteByID は指定IDの記事を削除する。post_tagsはCASCADE削除される。
func (r *PostgresPostRepo) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
