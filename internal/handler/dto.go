package handler

import (
	"time"

	"github.com/hitoshi/biscuitblog/internal/memory"
	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/post"
)

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    *string   `json:"avatar"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type tagResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type postResponse struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Excerpt     string        `json:"excerpt"`
	Content     string        `json:"content"`
	ContentHTML string        `json:"contentHtml"`
	CoverImage  *string       `json:"coverImage"`
	Published   bool          `json:"published"`
	PublishedAt *time.Time    `json:"publishedAt"`
	AuthorID    int64         `json:"authorId"`
	Tags        []tagResponse `json:"tags"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type memoryResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Image       *string   `json:"image"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"contentHtml"`
	AuthorID    int64     `json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// nullable は空文字列をJSONのnullとして出力するためのポインタを返す。
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    nullable(u.AvatarURL),
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toTagResponse(t *model.Tag) tagResponse {
	return tagResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Color:     t.Color,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTagResponses(tags []*model.Tag) []tagResponse {
	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	return out
}

func toPostResponse(d *post.Detail) postResponse {
	tags := make([]tagResponse, 0, len(d.Tags))
	for i := range d.Tags {
		tags = append(tags, toTagResponse(&d.Tags[i]))
	}
	return postResponse{
		ID:          d.ID,
		Title:       d.Title,
		Slug:        d.Slug,
		Excerpt:     d.Excerpt,
		Content:     d.Content,
		ContentHTML: d.ContentHTML,
		CoverImage:  nullable(d.CoverImage),
		Published:   d.Published,
		PublishedAt: d.PublishedAt,
		AuthorID:    d.AuthorID,
		Tags:        tags,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toPostResponses(details []*post.Detail) []postResponse {
	out := make([]postResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toPostResponse(d))
	}
	return out
}

func toMemoryResponse(d *memory.Detail) memoryResponse {
	return memoryResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date.Format(memory.DateLayout),
		Image:       nullable(d.Image),
		Content:     d.Content,
		ContentHTML: d.ContentHTML,
		AuthorID:    d.AuthorID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toMemoryResponses(details []*memory.Detail) []memoryResponse {
	out := make([]memoryResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toMemoryResponse(d))
	}
	return out
}
