package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/penguin2121/catalogOnline/internal/auth"
	"github.com/penguin2121/catalogOnline/internal/catalog"
	"github.com/penguin2121/catalogOnline/internal/metrics"
	"github.com/penguin2121/catalogOnline/internal/middleware"
	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/penguin2121/catalogOnline/internal/session"
)

// loginPath は未ログイン時のリダイレクト先。
const loginPath = "/login/"

// ItemHandlerConfig は項目変更ハンドラーの設定。
type ItemHandlerConfig struct {
	// NotOwnerForbidden がtrueの場合、所有者以外の操作にログイン画面へのリダイレクトではなく403を返す。
	NotOwnerForbidden bool
}

// ItemHandler は項目の追加・編集・削除のHTTPハンドラー。
// 全てのハンドラーは最初にauth.RequireAuthenticatedを呼び、
// 編集・削除はフォーム表示を含めてauth.AssertOwnerを通過した場合のみ処理する。
type ItemHandler struct {
	service CatalogServiceInterface
	metrics metrics.MetricsCollector
	config  ItemHandlerConfig
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service CatalogServiceInterface, collector metrics.MetricsCollector, config ItemHandlerConfig) *ItemHandler {
	return &ItemHandler{
		service: service,
		metrics: collector,
		config:  config,
	}
}

// requireUser はログイン中のユーザーIDを返す。未ログインの場合はログイン画面へリダイレクトする。
func (h *ItemHandler) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := auth.RequireAuthenticated(session.FromContext(r.Context()))
	if err != nil {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return 0, false
	}
	return userID, true
}

// requireOwner は所有者でない場合に拒否レスポンスを書き込み、falseを返す。
func (h *ItemHandler) requireOwner(w http.ResponseWriter, r *http.Request, userID int64, item *model.Item) bool {
	if err := auth.AssertOwner(userID, item); err != nil {
		h.metrics.RecordOwnershipDenial()
		slog.Warn("ownership check failed",
			slog.Int64("user_id", userID),
			slog.Int64("item_id", item.ID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if h.config.NotOwnerForbidden {
			middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenAPIError())
		} else {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
		}
		return false
	}
	return true
}

// loadOwnedItem はURLの項目を取得し、ログイン中のユーザーが所有者であることを確認する。
func (h *ItemHandler) loadOwnedItem(w http.ResponseWriter, r *http.Request) (int64, *model.Category, *model.Item, bool) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return 0, nil, nil, false
	}

	category, item, err := h.service.GetItem(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		handleServiceError(w, r, err)
		return 0, nil, nil, false
	}

	if !h.requireOwner(w, r, userID, item) {
		return 0, nil, nil, false
	}
	return userID, category, item, true
}

// AddForm は項目追加フォームを返す。
// GET /catalog/{category}/add/
func (h *ItemHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	category, err := h.service.GetCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, formView{
		Category:  toCategoryRecord(category),
		UserID:    userID,
		CSRFToken: middleware.CSRFToken(r.Context()),
	})
}

// Add は項目を作成し、カテゴリページへリダイレクトする。
// POST /catalog/{category}/add/ (form: name, description)
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	category, err := h.service.GetCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if _, err := h.service.CreateItem(r.Context(), catalog.CreateItemInput{
		Name:         r.PostFormValue("name"),
		Description:  r.PostFormValue("description"),
		CategoryName: category.Name,
		OwnerID:      userID,
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.metrics.RecordItemMutation(metrics.MutationCreate)

	http.Redirect(w, r, categoryPath(category.Name), http.StatusSeeOther)
}

// EditForm は項目編集フォームを返す。
// GET /catalog/{category}/{item}/edit/
func (h *ItemHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, category, item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	record := toItemRecord(item)
	writeJSON(w, http.StatusOK, formView{
		Category:  toCategoryRecord(category),
		Item:      &record,
		UserID:    userID,
		CSRFToken: middleware.CSRFToken(r.Context()),
	})
}

// Edit は項目を更新し、項目ページへリダイレクトする。
// 空のフィールドは変更しない。
// POST /catalog/{category}/{item}/edit/ (form: name, description)
func (h *ItemHandler) Edit(w http.ResponseWriter, r *http.Request) {
	_, category, item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationAPIError("フォームを解析できません。"))
		return
	}

	var patch model.ItemPatch
	if values, ok := r.PostForm["name"]; ok && len(values) > 0 {
		patch.Name = &values[0]
	}
	if values, ok := r.PostForm["description"]; ok && len(values) > 0 {
		patch.Description = &values[0]
	}

	if err := h.service.UpdateItem(r.Context(), item, patch); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.metrics.RecordItemMutation(metrics.MutationUpdate)

	http.Redirect(w, r, itemPath(category.Name, item.Name), http.StatusSeeOther)
}

// DeleteForm は項目削除の確認フォームを返す。
// GET /catalog/{category}/{item}/delete/
func (h *ItemHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	userID, category, item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	record := toItemRecord(item)
	writeJSON(w, http.StatusOK, formView{
		Category:  toCategoryRecord(category),
		Item:      &record,
		UserID:    userID,
		CSRFToken: middleware.CSRFToken(r.Context()),
	})
}

// Delete は項目を削除し、カテゴリページへリダイレクトする。
// POST /catalog/{category}/{item}/delete/
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, category, item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), item); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.metrics.RecordItemMutation(metrics.MutationDelete)

	http.Redirect(w, r, categoryPath(category.Name), http.StatusSeeOther)
}

func categoryPath(categoryName string) string {
	return "/catalog/" + url.PathEscape(categoryName) + "/"
}

func itemPath(categoryName, itemName string) string {
	return "/catalog/" + url.PathEscape(categoryName) + "/" + url.PathEscape(itemName) + "/"
}

// pathParam はURLパラメーターをデコードして返す。
// chiはRawPathでルーティングするため、%2F等のエスケープがそのまま残る。
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
