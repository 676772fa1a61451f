package handler

import (
	"time"

	"github.com/penguin2121/catalogOnline/internal/model"
)

// --- JSONレコード ---

// categoryRecord はカテゴリのJSON表現。
type categoryRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// itemRecord は項目のJSON表現。
type itemRecord struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
	UserID      int64     `json:"user_id"`
	CategoryID  int64     `json:"category_id"`
}

// itemListEnvelope は項目一覧のJSONレスポンス。
type itemListEnvelope struct {
	Item []itemRecord `json:"Item"`
}

// itemEnvelope は項目1件のJSONレスポンス。
type itemEnvelope struct {
	Item itemRecord `json:"Item"`
}

func toCategoryRecord(c *model.Category) categoryRecord {
	return categoryRecord{ID: c.ID, Name: c.Name}
}

func toCategoryRecords(categories []*model.Category) []categoryRecord {
	out := make([]categoryRecord, len(categories))
	for i, c := range categories {
		out[i] = toCategoryRecord(c)
	}
	return out
}

func toItemRecord(it *model.Item) itemRecord {
	return itemRecord{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Time:        it.CreatedAt,
		UserID:      it.UserID,
		CategoryID:  it.CategoryID,
	}
}

func toItemRecords(items []*model.Item) []itemRecord {
	out := make([]itemRecord, len(items))
	for i, it := range items {
		out[i] = toItemRecord(it)
	}
	return out
}

// --- ページのビューモデル ---
// HTMLテンプレートの代わりにJSONとして返す。
// user_idは未ログインの場合null。

// homeView はトップページのビューモデル。
type homeView struct {
	Categories []categoryRecord `json:"categories"`
	Items      []itemRecord     `json:"items"`
	UserID     *int64           `json:"user_id"`
}

// categoryView はカテゴリページのビューモデル。
type categoryView struct {
	CategoryList []categoryRecord `json:"category_list"`
	Category     categoryRecord   `json:"category"`
	Items        []itemRecord     `json:"items"`
	UserID       *int64           `json:"user_id"`
}

// itemView は項目詳細ページのビューモデル。
// 編集・削除ボタンはuser_idと項目のuser_idが一致する場合に表示する。
type itemView struct {
	Category categoryRecord `json:"category"`
	Item     itemRecord     `json:"item"`
	UserID   *int64         `json:"user_id"`
}

// formView は追加・編集・削除フォームのビューモデル。
type formView struct {
	Category  categoryRecord `json:"category"`
	Item      *itemRecord    `json:"item,omitempty"`
	UserID    int64          `json:"user_id"`
	CSRFToken string         `json:"csrf_token"`
}

// loginView はログインページのビューモデル。
type loginView struct {
	State    string `json:"state"`
	ClientID string `json:"client_id"`
}

// welcomeView はサインイン完了時のビューモデル。
type welcomeView struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email"`
	UserID  int64  `json:"user_id"`
}
