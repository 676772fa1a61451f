package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/penguin2121/catalogOnline/internal/auth"
	"github.com/penguin2121/catalogOnline/internal/catalog"
	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/penguin2121/catalogOnline/internal/session"
)

// --- モック定義 ---

// mockCatalogService はCatalogServiceInterfaceのモック実装。
type mockCatalogService struct {
	listCategoriesFn      func(ctx context.Context) ([]*model.Category, error)
	getCategoryFn         func(ctx context.Context, name string) (*model.Category, error)
	listItemsByCategoryFn func(ctx context.Context, categoryName string) (*model.Category, []*model.Item, error)
	listRecentItemsFn     func(ctx context.Context, limit int) ([]*model.Item, error)
	getItemFn             func(ctx context.Context, categoryName, itemName string) (*model.Category, *model.Item, error)
	createItemFn          func(ctx context.Context, in catalog.CreateItemInput) (*model.Item, error)
	updateItemFn          func(ctx context.Context, item *model.Item, patch model.ItemPatch) error
	deleteItemFn          func(ctx context.Context, item *model.Item) error

	createCalls int
	updateCalls int
	deleteCalls int
}

func (m *mockCatalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return []*model.Category{dogCategory()}, nil
}

func (m *mockCatalogService) GetCategory(ctx context.Context, name string) (*model.Category, error) {
	if m.getCategoryFn != nil {
		return m.getCategoryFn(ctx, name)
	}
	return dogCategory(), nil
}

func (m *mockCatalogService) ListItemsByCategory(ctx context.Context, categoryName string) (*model.Category, []*model.Item, error) {
	if m.listItemsByCategoryFn != nil {
		return m.listItemsByCategoryFn(ctx, categoryName)
	}
	return dogCategory(), []*model.Item{pugItem()}, nil
}

func (m *mockCatalogService) ListRecentItems(ctx context.Context, limit int) ([]*model.Item, error) {
	if m.listRecentItemsFn != nil {
		return m.listRecentItemsFn(ctx, limit)
	}
	return []*model.Item{pugItem()}, nil
}

func (m *mockCatalogService) GetItem(ctx context.Context, categoryName, itemName string) (*model.Category, *model.Item, error) {
	if m.getItemFn != nil {
		return m.getItemFn(ctx, categoryName, itemName)
	}
	return dogCategory(), pugItem(), nil
}

func (m *mockCatalogService) CreateItem(ctx context.Context, in catalog.CreateItemInput) (*model.Item, error) {
	m.createCalls++
	if m.createItemFn != nil {
		return m.createItemFn(ctx, in)
	}
	return &model.Item{ID: 99, Name: in.Name, UserID: in.OwnerID, CategoryID: 1}, nil
}

func (m *mockCatalogService) UpdateItem(ctx context.Context, item *model.Item, patch model.ItemPatch) error {
	m.updateCalls++
	if m.updateItemFn != nil {
		return m.updateItemFn(ctx, item, patch)
	}
	return nil
}

func (m *mockCatalogService) DeleteItem(ctx context.Context, item *model.Item) error {
	m.deleteCalls++
	if m.deleteItemFn != nil {
		return m.deleteItemFn(ctx, item)
	}
	return nil
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	issueStateFn func(sess *session.Session) (string, error)
	connectFn    func(ctx context.Context, sess *session.Session, state, code string) (*auth.ConnectResult, error)
	disconnectFn func(ctx context.Context, sess *session.Session) (*auth.DisconnectResult, error)
}

func (m *mockAuthService) ClientID() string { return "client-id" }

func (m *mockAuthService) IssueState(sess *session.Session) (string, error) {
	if m.issueStateFn != nil {
		return m.issueStateFn(sess)
	}
	sess.Set(auth.KeyState, "STATE")
	return "STATE", nil
}

func (m *mockAuthService) Connect(ctx context.Context, sess *session.Session, state, code string) (*auth.ConnectResult, error) {
	if m.connectFn != nil {
		return m.connectFn(ctx, sess, state, code)
	}
	return &auth.ConnectResult{UserID: 1}, nil
}

func (m *mockAuthService) Disconnect(ctx context.Context, sess *session.Session) (*auth.DisconnectResult, error) {
	if m.disconnectFn != nil {
		return m.disconnectFn(ctx, sess)
	}
	return &auth.DisconnectResult{Revoked: true, Status: http.StatusOK}, nil
}

// mockCollector はmetrics.MetricsCollectorのモック実装。
type mockCollector struct {
	mu        sync.Mutex
	statuses  []int
	logins    []string
	mutations []string
	denials   int
}

func (m *mockCollector) RecordHTTPStatus(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockCollector) RecordRequestLatency(time.Duration) {}

func (m *mockCollector) RecordLogin(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, result)
}

func (m *mockCollector) RecordItemMutation(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations = append(m.mutations, op)
}

func (m *mockCollector) RecordOwnershipDenial() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denials++
}

// memSessionStore はテスト用のインメモリsession.Store。
type memSessionStore struct {
	mu      sync.Mutex
	records map[string]*model.SessionRecord
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{records: map[string]*model.SessionRecord{}}
}

func (s *memSessionStore) Load(ctx context.Context, id string) (*model.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.Expired(time.Now()) {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *memSessionStore) Save(ctx context.Context, record *model.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *memSessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memSessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// --- ヘルパー ---

func dogCategory() *model.Category {
	return &model.Category{ID: 1, Name: "Dog"}
}

func pugItem() *model.Item {
	return &model.Item{
		ID:          10,
		Name:        "Pug",
		Description: "Small dog",
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UserID:      1,
		CategoryID:  1,
		Version:     1,
	}
}

// loggedIn はユーザーIDを持つセッションを返す。
func loggedIn(userID string) *session.Session {
	s := session.New("test-session")
	s.Set(auth.KeyUserID, userID)
	return s
}

// newRequest はセッションとURLパラメータを注入したリクエストを生成する。
func newRequest(method, target string, body io.Reader, sess *session.Session, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil && method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if sess != nil {
		ctx = session.NewContext(ctx, sess)
	}
	return req.WithContext(ctx)
}
