package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/penguin2121/catalogOnline/internal/model"
)

const itemColumns = `id, name, description, created_at, user_id, category_id, version`

// PostgresItemRepo はPostgreSQLを使用した項目リポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

// ListByCategory はカテゴリに属する項目をID順で返す。
func (r *PostgresItemRepo) ListByCategory(ctx context.Context, categoryID int64) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE category_id = $1 ORDER BY id`,
		categoryID,
	)
	if err != nil {
		return nil, wrapError("list items by category", err)
	}
	return scanItems(rows)
}

// ListRecent は作成日時の降順で最大limit件の項目を返す。
// 同時刻の項目はIDの降順で並べる。
func (r *PostgresItemRepo) ListRecent(ctx context.Context, limit int) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapError("list recent items", err)
	}
	return scanItems(rows)
}

// FindByCategoryAndName はカテゴリIDと名前で項目を検索する。
func (r *PostgresItemRepo) FindByCategoryAndName(ctx context.Context, categoryID int64, name string) (*model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE category_id = $1 AND name = $2 LIMIT 2`,
		categoryID, name,
	)
	if err != nil {
		return nil, wrapError("find item by name", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return items[0], nil
	default:
		return nil, fmt.Errorf("items named %q in category %d: %w", name, categoryID, model.ErrAmbiguousLookup)
	}
}

// Create は項目を作成する。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.Item) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO items (name, description, user_id, category_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, version`,
		item.Name, item.Description, item.UserID, item.CategoryID,
	).Scan(&item.ID, &item.CreatedAt, &item.Version)
	if isUniqueViolation(err) {
		return model.ErrDuplicateItem
	}
	if err != nil {
		return wrapError("insert item", err)
	}
	return nil
}

// Update は名前と説明を上書きする。
// 読み込み時のバージョンと一致する場合のみ更新し、成功時はitem.Versionを進める。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.Item) error {
	var newVersion int
	err := r.db.QueryRowContext(ctx,
		`UPDATE items SET name = $1, description = $2, version = version + 1
		 WHERE id = $3 AND version = $4
		 RETURNING version`,
		item.Name, item.Description, item.ID, item.Version,
	).Scan(&newVersion)
	if err == sql.ErrNoRows {
		return fmt.Errorf("item %d at version %d: %w", item.ID, item.Version, model.ErrVersionConflict)
	}
	if isUniqueViolation(err) {
		return model.ErrDuplicateItem
	}
	if err != nil {
		return wrapError("update item", err)
	}

	item.Version = newVersion
	return nil
}

// Delete は指定IDの項目を削除する。
func (r *PostgresItemRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return wrapError("delete item", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapError("get rows affected", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// scanItems は項目の行をすべて読み込みrowsを閉じる。
func scanItems(rows *sql.Rows) ([]*model.Item, error) {
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		it := &model.Item{}
		var description sql.NullString
		if err := rows.Scan(&it.ID, &it.Name, &description, &it.CreatedAt, &it.UserID, &it.CategoryID, &it.Version); err != nil {
			return nil, wrapError("scan item", err)
		}
		it.Description = description.String
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("iterate items", err)
	}
	return items, nil
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
