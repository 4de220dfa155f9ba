package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/hitoshi/biscuitblog/internal/auth"
	"github.com/hitoshi/biscuitblog/internal/memory"
	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/post"
	"github.com/hitoshi/biscuitblog/internal/schema"
	"github.com/hitoshi/biscuitblog/internal/storage"
	"github.com/hitoshi/biscuitblog/internal/tag"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*auth.LoginAttempt, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*auth.LoginAttempt, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, auth.ErrUpstream
}

// mockSessions はSessionManagerのモック実装。
// Cookieの値をそのままトークンとして扱う。
type mockSessions struct {
	users      map[string]*model.User
	destroyed  []string
	destroyErr error
	writeErr   error
	written    *model.Session
	cleared    bool
}

func (m *mockSessions) ResolveRequest(r *http.Request) (*model.User, error) {
	return m.users[m.TokenFromRequest(r)], nil
}

func (m *mockSessions) WriteCookie(w http.ResponseWriter, s *model.Session) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = s
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: s.ID, Path: "/"})
	return nil
}

func (m *mockSessions) ClearCookie(w http.ResponseWriter) {
	m.cleared = true
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "", Path: "/", MaxAge: -1})
}

func (m *mockSessions) TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie("session_id")
	if err != nil {
		return ""
	}
	return c.Value
}

func (m *mockSessions) Destroy(_ context.Context, token string) error {
	m.destroyed = append(m.destroyed, token)
	if m.destroyErr != nil {
		return m.destroyErr
	}
	delete(m.users, token)
	return nil
}

type mockPostService struct {
	listFn      func(ctx context.Context, viewer *model.User, q post.ListQuery) ([]*post.Detail, error)
	getBySlugFn func(ctx context.Context, viewer *model.User, slug string) (*post.Detail, error)
	createFn    func(ctx context.Context, author *model.User, in post.CreateInput) (*post.Detail, error)
	updateFn    func(ctx context.Context, actor *model.User, id int64, in post.UpdateInput) (*post.Detail, error)
	deleteFn    func(ctx context.Context, actor *model.User, id int64) error
}

func (m *mockPostService) List(ctx context.Context, viewer *model.User, q post.ListQuery) ([]*post.Detail, error) {
	if m.listFn != nil {
		return m.listFn(ctx, viewer, q)
	}
	return nil, nil
}

func (m *mockPostService) GetBySlug(ctx context.Context, viewer *model.User, slug string) (*post.Detail, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, viewer, slug)
	}
	return nil, model.NewNotFoundError("Post")
}

func (m *mockPostService) Create(ctx context.Context, author *model.User, in post.CreateInput) (*post.Detail, error) {
	if m.createFn != nil {
		return m.createFn(ctx, author, in)
	}
	return nil, nil
}

func (m *mockPostService) Update(ctx context.Context, actor *model.User, id int64, in post.UpdateInput) (*post.Detail, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, in)
	}
	return nil, nil
}

func (m *mockPostService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, id)
	}
	return nil
}

type mockMemoryService struct {
	listFn   func(ctx context.Context, page, limit int) ([]*memory.Detail, error)
	getFn    func(ctx context.Context, id int64) (*memory.Detail, error)
	createFn func(ctx context.Context, author *model.User, in memory.CreateInput) (*memory.Detail, error)
	updateFn func(ctx context.Context, actor *model.User, id int64, in memory.UpdateInput) (*memory.Detail, error)
	deleteFn func(ctx context.Context, actor *model.User, id int64) error
}

func (m *mockMemoryService) List(ctx context.Context, page, limit int) ([]*memory.Detail, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page, limit)
	}
	return nil, nil
}

func (m *mockMemoryService) Get(ctx context.Context, id int64) (*memory.Detail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewNotFoundError("Memory")
}

func (m *mockMemoryService) Create(ctx context.Context, author *model.User, in memory.CreateInput) (*memory.Detail, error) {
	if m.createFn != nil {
		return m.createFn(ctx, author, in)
	}
	return nil, nil
}

func (m *mockMemoryService) Update(ctx context.Context, actor *model.User, id int64, in memory.UpdateInput) (*memory.Detail, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, in)
	}
	return nil, nil
}

func (m *mockMemoryService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, id)
	}
	return nil
}

type mockTagService struct {
	listFn      func(ctx context.Context) ([]*model.Tag, error)
	getBySlugFn func(ctx context.Context, slug string) (*model.Tag, error)
	createFn    func(ctx context.Context, actor *model.User, in tag.CreateInput) (*model.Tag, error)
	updateFn    func(ctx context.Context, actor *model.User, id int64, in tag.UpdateInput) (*model.Tag, error)
	deleteFn    func(ctx context.Context, actor *model.User, id int64) error
}

func (m *mockTagService) List(ctx context.Context) ([]*model.Tag, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockTagService) GetBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, model.NewNotFoundError("Tag")
}

func (m *mockTagService) Create(ctx context.Context, actor *model.User, in tag.CreateInput) (*model.Tag, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor, in)
	}
	return nil, nil
}

func (m *mockTagService) Update(ctx context.Context, actor *model.User, id int64, in tag.UpdateInput) (*model.Tag, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, in)
	}
	return nil, nil
}

func (m *mockTagService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, id)
	}
	return nil
}

type mockUserService struct {
	withdrawFn func(ctx context.Context, userID int64) error
}

func (m *mockUserService) Withdraw(ctx context.Context, userID int64) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

type mockUploader struct {
	maxBytes      int64
	acceptImageFn func(ctx context.Context, data []byte, filename string) (string, error)
}

func (m *mockUploader) AcceptImage(ctx context.Context, data []byte, filename string) (string, error) {
	if m.acceptImageFn != nil {
		return m.acceptImageFn(ctx, data, filename)
	}
	return "/uploads/image-1-optimized.webp", nil
}

func (m *mockUploader) MaxBytes() int64 {
	if m.maxBytes > 0 {
		return m.maxBytes
	}
	return 5 * 1024 * 1024
}

type mockObjects struct {
	openFn func(ctx context.Context, name string) (*storage.Object, error)
}

func (m *mockObjects) Open(ctx context.Context, name string) (*storage.Object, error) {
	if m.openFn != nil {
		return m.openFn(ctx, name)
	}
	return nil, storage.ErrNotFound
}

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.err
}

// --- compile-time interface checks ---
var _ AuthServiceInterface = (*mockAuthService)(nil)
var _ SessionManager = (*mockSessions)(nil)
var _ PostServiceInterface = (*mockPostService)(nil)
var _ MemoryServiceInterface = (*mockMemoryService)(nil)
var _ TagServiceInterface = (*mockTagService)(nil)
var _ UserServiceInterface = (*mockUserService)(nil)
var _ UploaderInterface = (*mockUploader)(nil)
var _ ObjectOpener = (*mockObjects)(nil)

// --- ヘルパー ---

// withUser はテスト用にコンテキストへ認証済みユーザーを注入するヘルパー。
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

func testValidator(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return v
}

// decodeJSON はレスポンスボディをmapにデコードする。
func decodeJSON(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", body, err)
	}
	return out
}

// errorCode はエラーレスポンスのcodeを返す。
func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	code, _ := decodeJSON(t, body)["code"].(string)
	return code
}

var (
	testAuthor = &model.User{ID: 1, Email: "author@example.com", Name: "Author", Role: model.RoleUser}
	testAdmin  = &model.User{ID: 9, Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin}
)
