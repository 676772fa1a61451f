// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/penguin2121/catalogOnline/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByEmail はメールアドレスの完全一致でユーザーを検索する。
	// 見つからない場合はnilを返す。複数一致した場合はmodel.ErrAmbiguousLookupを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
	// メールアドレスが既に存在する場合はErrEmailTakenを返す。
	Create(ctx context.Context, user *model.User) error
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// List は全カテゴリをID順で返す。
	List(ctx context.Context) ([]*model.Category, error)

	// FindByName は正規化済みの名前でカテゴリを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Category, error)

	// Create はカテゴリを作成する。シード処理専用。
	Create(ctx context.Context, category *model.Category) error
}

// ItemRepository は項目データの永続化インターフェース。
type ItemRepository interface {
	// ListByCategory はカテゴリに属する項目をID順で返す。
	ListByCategory(ctx context.Context, categoryID int64) ([]*model.Item, error)

	// ListRecent は作成日時の降順で最大limit件の項目を返す。
	ListRecent(ctx context.Context, limit int) ([]*model.Item, error)

	// FindByCategoryAndName はカテゴリIDと正規化済みの名前で項目を検索する。
	// 見つからない場合はnilを返す。複数一致した場合はmodel.ErrAmbiguousLookupを返す。
	FindByCategoryAndName(ctx context.Context, categoryID int64, name string) (*model.Item, error)

	// Create は項目を作成し、ID・作成日時・バージョンをitemに設定する。
	// 同一カテゴリに同名の項目がある場合はmodel.ErrDuplicateItemを返す。
	Create(ctx context.Context, item *model.Item) error

	// Update は名前と説明を上書きし、バージョンを1つ進める。
	// item.Versionが保存済みの値と異なる場合はmodel.ErrVersionConflictを返す。
	Update(ctx context.Context, item *model.Item) error

	// Delete は指定IDの項目を削除する。存在しない場合はmodel.ErrNotFoundを返す。
	Delete(ctx context.Context, id int64) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Load は指定IDのセッションを取得する。存在しないか期限切れの場合はnilを返す。
	Load(ctx context.Context, id string) (*model.SessionRecord, error)
	// Save はセッションを作成または上書きする。
	Save(ctx context.Context, record *model.SessionRecord) error
	// Delete は指定IDのセッションを削除する。
	Delete(ctx context.Context, id string) error
}
