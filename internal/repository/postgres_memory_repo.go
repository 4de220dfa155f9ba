package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// PostgresMemoryRepo はPostgreSQLを使用した思い出リポジトリ。
type PostgresMemoryRepo struct {
	db *sql.DB
}

// NewPostgresMemoryRepo はPostgresMemoryRepoを生成する。
func NewPostgresMemoryRepo(db *sql.DB) *PostgresMemoryRepo {
	return &PostgresMemoryRepo{db: db}
}

const memoryColumns = `id, title, description, date, image, content, author_id, created_at, updated_at`

func scanMemory(row interface{ Scan(...any) error }) (*model.Memory, error) {
	m := &model.Memory{}
	var description, image, content sql.NullString
	if err := row.Scan(
		&m.ID, &m.Title, &description, &m.Date, &image, &content,
		&m.AuthorID, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Description = nullStringValue(description)
	m.Image = nullStringValue(image)
	m.Content = nullStringValue(content)
	return m, nil
}

// FindByID は指定IDの思い出を取得する。見つからない場合はnilを返す。
func (r *PostgresMemoryRepo) FindByID(ctx context.Context, id int64) (*model.Memory, error) {
	m, err := scanMemory(r.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find memory: %w", err)
	}
	return m, nil
}

// List は思い出を date 降順、id降順で返す。
func (r *PostgresMemoryRepo) List(ctx context.Context, limit, offset int) ([]*model.Memory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 ORDER BY date DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	memories := []*model.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return memories, nil
}

// Create は思い出を作成する。
func (r *PostgresMemoryRepo) Create(ctx context.Context, m *model.Memory) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO memories (title, description, date, image, content, author_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		m.Title, nullString(m.Description), m.Date, nullString(m.Image), nullString(m.Content), m.AuthorID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return translatePQError("insert memory", err)
	}
	return nil
}

// Update は思い出を更新する。
func (r *PostgresMemoryRepo) Update(ctx context.Context, m *model.Memory) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE memories SET
		    title = $2, description = $3, date = $4, image = $5, content = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		m.ID, m.Title, nullString(m.Description), m.Date, nullString(m.Image), nullString(m.Content),
	).Scan(&m.UpdatedAt)
	if err != nil {
		return translatePQError("update memory", err)
	}
	return nil
}

// DeleteByID は指定IDの思い出を削除する。
func (r *PostgresMemoryRepo) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

// compile-time interface check
var _ MemoryRepository = (*PostgresMemoryRepo)(nil)
