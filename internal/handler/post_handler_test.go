package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/post"
)

func samplePost() *post.Detail {
	published := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &post.Detail{
		Post: &model.Post{
			ID:          3,
			Title:       "Hello",
			Slug:        "hello",
			Content:     "# Hello",
			Published:   true,
			PublishedAt: &published,
			AuthorID:    testAuthor.ID,
			Tags:        []model.Tag{{ID: 10, Name: "Go", Slug: "go", Color: "#3B82F6"}},
		},
		ContentHTML: "<h1>Hello</h1>",
	}
}

// --- GET /api/posts ---

func TestPostHandler_ListPosts_PassesQuery(t *testing.T) {
	var got post.ListQuery
	var gotViewer *model.User
	svc := &mockPostService{
		listFn: func(ctx context.Context, viewer *model.User, q post.ListQuery) ([]*post.Detail, error) {
			got, gotViewer = q, viewer
			return []*post.Detail{samplePost()}, nil
		},
	}
	h := NewPostHandler(svc, testValidator(t), false)

	req := httptest.NewRequest(http.MethodGet, "/api/posts?page=2&limit=5&search=go&tag=travel&drafts=true", nil)
	req = withUser(req, testAuthor)
	w := httptest.NewRecorder()
	h.ListPosts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	want := post.ListQuery{Page: 2, Limit: 5, Search: "go", Tag: "travel", Drafts: true}
	if got != want {
		t.Errorf("query = %+v, want %+v", got, want)
	}
	if gotViewer != testAuthor {
		t.Error("viewer should be the context user")
	}

	posts := decodeJSON(t, w.Body.Bytes())["posts"].([]any)
	if len(posts) != 1 {
		t.Fatalf("posts = %v", posts)
	}
	p := posts[0].(map[string]any)
	if p["contentHtml"] != "<h1>Hello</h1>" || p["slug"] != "hello" {
		t.Errorf("post = %v", p)
	}
	if tags := p["tags"].([]any); len(tags) != 1 {
		t.Errorf("tags = %v", tags)
	}
}

func TestPostHandler_ListPosts_EmptyIsArray(t *testing.T) {
	h := NewPostHandler(&mockPostService{}, testValidator(t), false)

	w := httptest.NewRecorder()
	h.ListPosts(w, httptest.NewRequest(http.MethodGet, "/api/posts?search=xyz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"posts":[]}` {
		t.Errorf("body = %s, want {\"posts\":[]}", body)
	}
}

func TestPostHandler_ListPosts_InvalidPage(t *testing.T) {
	h := NewPostHandler(&mockPostService{}, testValidator(t), false)

	w := httptest.NewRecorder()
	h.ListPosts(w, httptest.NewRequest(http.MethodGet, "/api/posts?page=abc", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /api/posts/{ref} ---

func TestPostHandler_GetPost(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"found", nil, http.StatusOK},
		{"not found", model.NewNotFoundError("Post"), http.StatusNotFound},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPostService{
				getBySlugFn: func(ctx context.Context, viewer *model.User, slug string) (*post.Detail, error) {
					if slug != "hello" {
						t.Errorf("slug = %q", slug)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return samplePost(), nil
				},
			}
			h := NewPostHandler(svc, testValidator(t), false)

			req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/posts/hello", nil), "ref", "hello")
			w := httptest.NewRecorder()
			h.GetPost(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.err == nil {
				p := decodeJSON(t, w.Body.Bytes())["post"].(map[string]any)
				if p["publishedAt"] != "2024-05-01T09:00:00Z" {
					t.Errorf("publishedAt = %v", p["publishedAt"])
				}
				if p["coverImage"] != nil {
					t.Errorf("coverImage = %v, want null", p["coverImage"])
				}
			}
		})
	}
}

func TestPostHandler_InternalErrorHidesDetailUnlessExposed(t *testing.T) {
	for _, expose := range []bool{false, true} {
		svc := &mockPostService{
			getBySlugFn: func(ctx context.Context, viewer *model.User, slug string) (*post.Detail, error) {
				return nil, errors.New("pq: connection refused")
			},
		}
		h := NewPostHandler(svc, testValidator(t), expose)

		req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/posts/x", nil), "ref", "x")
		w := httptest.NewRecorder()
		h.GetPost(w, req)

		leaked := strings.Contains(w.Body.String(), "connection refused")
		if leaked != expose {
			t.Errorf("expose=%v: body = %s", expose, w.Body.String())
		}
	}
}

// --- POST /api/posts ---

func TestPostHandler_CreatePost_Success(t *testing.T) {
	var got post.CreateInput
	svc := &mockPostService{
		createFn: func(ctx context.Context, author *model.User, in post.CreateInput) (*post.Detail, error) {
			if author != testAuthor {
				t.Error("author should be the context user")
			}
			got = in
			return samplePost(), nil
		},
	}
	h := NewPostHandler(svc, testValidator(t), false)

	body := `{"title":"Hello","content":"# Hello","published":true,"tags":["go"],"coverImage":"/uploads/a.webp"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body)), testAuthor)
	w := httptest.NewRecorder()
	h.CreatePost(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if got.Title != "Hello" || !got.Published || len(got.Tags) != 1 || got.CoverImage != "/uploads/a.webp" {
		t.Errorf("input = %+v", got)
	}
	if _, ok := decodeJSON(t, w.Body.Bytes())["post"]; !ok {
		t.Error("response should contain post")
	}
}

func TestPostHandler_CreatePost_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"title":`},
		{"missing content", `{"title":"T"}`},
		{"empty title", `{"title":"","content":"c"}`},
		{"wrong type", `{"title":"T","content":"c","published":"yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPostService{
				createFn: func(ctx context.Context, author *model.User, in post.CreateInput) (*post.Detail, error) {
					t.Error("service should not be called")
					return nil, nil
				},
			}
			h := NewPostHandler(svc, testValidator(t), false)

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(tt.body)), testAuthor)
			w := httptest.NewRecorder()
			h.CreatePost(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if code := errorCode(t, w.Body.Bytes()); code != model.ErrCodeValidation {
				t.Errorf("code = %q", code)
			}
		})
	}
}

func TestPostHandler_CreatePost_DuplicateSlugIsConflict(t *testing.T) {
	svc := &mockPostService{
		createFn: func(ctx context.Context, author *model.User, in post.CreateInput) (*post.Detail, error) {
			return nil, model.NewConflictError("Post slug")
		},
	}
	h := NewPostHandler(svc, testValidator(t), false)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"title":"T","content":"c","slug":"taken"}`)), testAuthor)
	w := httptest.NewRecorder()
	h.CreatePost(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// --- PUT /api/posts/{ref} ---

func TestPostHandler_UpdatePost_PublishedAtTriState(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSet bool
		wantNil bool
	}{
		{"absent", `{"title":"New"}`, false, true},
		{"null", `{"publishedAt":null}`, true, true},
		{"value", `{"publishedAt":"2024-01-02T03:04:05Z"}`, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got post.UpdateInput
			var gotID int64
			svc := &mockPostService{
				updateFn: func(ctx context.Context, actor *model.User, id int64, in post.UpdateInput) (*post.Detail, error) {
					got, gotID = in, id
					return samplePost(), nil
				},
			}
			h := NewPostHandler(svc, testValidator(t), false)

			req := httptest.NewRequest(http.MethodPut, "/api/posts/3", strings.NewReader(tt.body))
			req = withChiURLParam(withUser(req, testAuthor), "ref", "3")
			w := httptest.NewRecorder()
			h.UpdatePost(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			if gotID != 3 {
				t.Errorf("id = %d", gotID)
			}
			if got.SetPublishedAt != tt.wantSet {
				t.Errorf("SetPublishedAt = %v, want %v", got.SetPublishedAt, tt.wantSet)
			}
			if (got.PublishedAt == nil) != tt.wantNil {
				t.Errorf("PublishedAt = %v", got.PublishedAt)
			}
		})
	}
}

func TestPostHandler_UpdatePost_TagsAbsentVersusEmpty(t *testing.T) {
	var got post.UpdateInput
	svc := &mockPostService{
		updateFn: func(ctx context.Context, actor *model.User, id int64, in post.UpdateInput) (*post.Detail, error) {
			got = in
			return samplePost(), nil
		},
	}
	h := NewPostHandler(svc, testValidator(t), false)

	do := func(body string) {
		req := httptest.NewRequest(http.MethodPut, "/api/posts/3", strings.NewReader(body))
		req = withChiURLParam(withUser(req, testAuthor), "ref", "3")
		h.UpdatePost(httptest.NewRecorder(), req)
	}

	do(`{"title":"x"}`)
	if got.Tags != nil {
		t.Errorf("absent tags should be nil, got %v", *got.Tags)
	}

	do(`{"tags":[]}`)
	if got.Tags == nil || len(*got.Tags) != 0 {
		t.Errorf("empty tags should be non-nil empty slice, got %v", got.Tags)
	}
}

func TestPostHandler_UpdatePost_Errors(t *testing.T) {
	tests := []struct {
		name       string
		ref        string
		err        error
		wantStatus int
	}{
		{"non numeric id", "hello", nil, http.StatusBadRequest},
		{"forbidden", "3", model.NewForbiddenError(), http.StatusForbidden},
		{"not found", "3", model.NewNotFoundError("Post"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPostService{
				updateFn: func(ctx context.Context, actor *model.User, id int64, in post.UpdateInput) (*post.Detail, error) {
					return nil, tt.err
				},
			}
			h := NewPostHandler(svc, testValidator(t), false)

			req := httptest.NewRequest(http.MethodPut, "/api/posts/"+tt.ref, strings.NewReader(`{"title":"x"}`))
			req = withChiURLParam(withUser(req, testAuthor), "ref", tt.ref)
			w := httptest.NewRecorder()
			h.UpdatePost(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

// --- DELETE /api/posts/{ref} ---

func TestPostHandler_DeletePost(t *testing.T) {
	var gotID int64
	svc := &mockPostService{
		deleteFn: func(ctx context.Context, actor *model.User, id int64) error {
			gotID = id
			return nil
		},
	}
	h := NewPostHandler(svc, testValidator(t), false)

	req := withChiURLParam(withUser(httptest.NewRequest(http.MethodDelete, "/api/posts/7", nil), testAdmin), "ref", "7")
	w := httptest.NewRecorder()
	h.DeletePost(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotID != 7 {
		t.Errorf("id = %d", gotID)
	}
}
