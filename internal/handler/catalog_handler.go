package handler

import (
	"context"
	"net/http"

	"github.com/penguin2121/catalogOnline/internal/auth"
	"github.com/penguin2121/catalogOnline/internal/catalog"
	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/penguin2121/catalogOnline/internal/session"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
// catalog.Serviceが実装する。
type CatalogServiceInterface interface {
	ListCategories(ctx context.Context) ([]*model.Category, error)
	GetCategory(ctx context.Context, name string) (*model.Category, error)
	ListItemsByCategory(ctx context.Context, categoryName string) (*model.Category, []*model.Item, error)
	ListRecentItems(ctx context.Context, limit int) ([]*model.Item, error)
	GetItem(ctx context.Context, categoryName, itemName string) (*model.Category, *model.Item, error)
	CreateItem(ctx context.Context, in catalog.CreateItemInput) (*model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item, patch model.ItemPatch) error
	DeleteItem(ctx context.Context, item *model.Item) error
}

// CatalogHandler はカタログの閲覧ページとJSONエンドポイントのHTTPハンドラー。
type CatalogHandler struct {
	service          CatalogServiceInterface
	recentItemsLimit int
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface, recentItemsLimit int) *CatalogHandler {
	return &CatalogHandler{
		service:          service,
		recentItemsLimit: recentItemsLimit,
	}
}

// viewerID はログイン中のユーザーIDを返す。未ログインの場合はnil。
func viewerID(r *http.Request) *int64 {
	userID, err := auth.RequireAuthenticated(session.FromContext(r.Context()))
	if err != nil {
		return nil
	}
	return &userID
}

// Home はカテゴリ一覧と新着項目を返す。
// GET / , GET /catalog/
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	items, err := h.service.ListRecentItems(r.Context(), h.recentItemsLimit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, homeView{
		Categories: toCategoryRecords(categories),
		Items:      toItemRecords(items),
		UserID:     viewerID(r),
	})
}

// Category はカテゴリの項目一覧を返す。
// GET /catalog/{category}/ , GET /catalog/{category}/items/
func (h *CatalogHandler) Category(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	category, items, err := h.service.ListItemsByCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, categoryView{
		CategoryList: toCategoryRecords(categories),
		Category:     toCategoryRecord(category),
		Items:        toItemRecords(items),
		UserID:       viewerID(r),
	})
}

// Item は項目の詳細を返す。
// GET /catalog/{category}/{item}/
func (h *CatalogHandler) Item(w http.ResponseWriter, r *http.Request) {
	category, item, err := h.service.GetItem(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemView{
		Category: toCategoryRecord(category),
		Item:     toItemRecord(item),
		UserID:   viewerID(r),
	})
}

// CategoryJSON はカテゴリの全項目をJSONで返す。
// GET /catalog/{category}/JSON , GET /catalog/{category}/items/JSON
func (h *CatalogHandler) CategoryJSON(w http.ResponseWriter, r *http.Request) {
	_, items, err := h.service.ListItemsByCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemListEnvelope{Item: toItemRecords(items)})
}

// ItemJSON は項目1件をJSONで返す。
// GET /catalog/{category}/{item}/JSON
func (h *CatalogHandler) ItemJSON(w http.ResponseWriter, r *http.Request) {
	_, item, err := h.service.GetItem(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemEnvelope{Item: toItemRecord(item)})
}
