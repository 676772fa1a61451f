// Package catalog はカテゴリと項目の参照・作成・更新・削除を提供する。
//
// カテゴリ名と項目名は書き込み時と全ての検索時にCanonicalizeで正規化される。
// 所有者チェックは呼び出し側（auth.AssertOwner）の責務であり、
// このパッケージは渡された項目をそのまま操作する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/penguin2121/catalogOnline/internal/repository"
	"github.com/penguin2121/catalogOnline/internal/security"
)

// EmptyNameMessage は項目名が空のときにフォームへ表示するメッセージ。
const EmptyNameMessage = "ERROR: You need to enter an item name in the form."

// 項目の列の長さ（文字数）。itemsテーブルのVARCHARと一致させる。
const (
	MaxNameLength        = 250
	MaxDescriptionLength = 2000
)

// 検証エラーのメッセージ。
const (
	NameTooLongMessage        = "ERROR: The item name must be 250 characters or fewer."
	NameHasSlashMessage       = "ERROR: The item name must not contain \"/\"."
	DescriptionTooLongMessage = "ERROR: The description must be 2000 characters or fewer."
)

// validateName は正規化済みの項目名を検証する。
// 名前はURLのパス要素になるため"/"を含められない。
func validateName(name string) error {
	switch {
	case name == "":
		return model.NewValidationError("name", EmptyNameMessage)
	case utf8.RuneCountInString(name) > MaxNameLength:
		return model.NewValidationError("name", NameTooLongMessage)
	case strings.Contains(name, "/"):
		return model.NewValidationError("name", NameHasSlashMessage)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return model.NewValidationError("description", DescriptionTooLongMessage)
	}
	return nil
}

// Service はカタログのリソース操作を提供する。
type Service struct {
	categories repository.CategoryRepository
	items      repository.ItemRepository
	sanitizer  security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	categories repository.CategoryRepository,
	items repository.ItemRepository,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		categories: categories,
		items:      items,
		sanitizer:  sanitizer,
	}
}

// CreateItemInput は項目作成の入力値。
type CreateItemInput struct {
	Name         string
	Description  string
	CategoryName string
	OwnerID      int64
}

// ListCategories は全カテゴリを返す。
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategory は名前でカテゴリを取得する。
// 存在しない場合はmodel.ErrNotFoundを返す。
func (s *Service) GetCategory(ctx context.Context, name string) (*model.Category, error) {
	canonical := Canonicalize(name)
	category, err := s.categories.FindByName(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	if category == nil {
		return nil, fmt.Errorf("category %q: %w", canonical, model.ErrNotFound)
	}
	return category, nil
}

// ListItemsByCategory はカテゴリとそのカテゴリに属する項目を返す。
// カテゴリが存在しない場合はmodel.ErrNotFoundを返す。
func (s *Service) ListItemsByCategory(ctx context.Context, categoryName string) (*model.Category, []*model.Item, error) {
	category, err := s.GetCategory(ctx, categoryName)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.items.ListByCategory(ctx, category.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list items: %w", err)
	}
	return category, items, nil
}

// ListRecentItems は作成日時の新しい順に最大limit件の項目を返す。
// limitが0以下の場合はストアに問い合わせず空のスライスを返す。
func (s *Service) ListRecentItems(ctx context.Context, limit int) ([]*model.Item, error) {
	if limit <= 0 {
		return []*model.Item{}, nil
	}

	items, err := s.items.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent items: %w", err)
	}
	return items, nil
}

// GetItem はカテゴリ名と項目名で項目を1件取得する。
// 一致する項目がない場合はmodel.ErrNotFoundを返す。
// 複数一致した場合のエラーはmodel.ErrAmbiguousLookupとmodel.ErrNotFoundの両方に一致する。
func (s *Service) GetItem(ctx context.Context, categoryName, itemName string) (*model.Category, *model.Item, error) {
	category, err := s.GetCategory(ctx, categoryName)
	if err != nil {
		return nil, nil, err
	}

	canonical := Canonicalize(itemName)
	item, err := s.items.FindByCategoryAndName(ctx, category.ID, canonical)
	if errors.Is(err, model.ErrAmbiguousLookup) {
		slog.Error("ambiguous item lookup",
			slog.String("category", category.Name),
			slog.String("item", canonical),
		)
		return nil, nil, fmt.Errorf("failed to find item: %w: %w", err, model.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find item: %w", err)
	}
	if item == nil {
		return nil, nil, fmt.Errorf("item %q in %q: %w", canonical, category.Name, model.ErrNotFound)
	}
	return category, item, nil
}

// CreateItem は項目を作成する。所有者はOwnerID、作成日時はストアの現在時刻になる。
// 名前が空・長すぎる・"/"を含む場合と説明が長すぎる場合は*model.ValidationError、
// カテゴリが存在しない場合はmodel.ErrNotFound、
// 同名の項目が既にある場合はmodel.ErrDuplicateItemを返す。
func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (*model.Item, error) {
	name := Canonicalize(s.sanitizer.Sanitize(in.Name))
	if err := validateName(name); err != nil {
		return nil, err
	}
	description := s.sanitizer.Sanitize(in.Description)
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	category, err := s.GetCategory(ctx, in.CategoryName)
	if err != nil {
		return nil, err
	}

	item := &model.Item{
		Name:        name,
		Description: description,
		UserID:      in.OwnerID,
		CategoryID:  category.ID,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	slog.Info("item created",
		slog.Int64("item_id", item.ID),
		slog.Int64("user_id", item.UserID),
		slog.String("category", category.Name),
		slog.String("item", item.Name),
	)
	return item, nil
}

// UpdateItem はpatchのうち値のあるフィールドだけを上書きする。
// nilまたは空文字のフィールドは既存の値を維持する。
// 値のあるフィールドはCreateItemと同じ規則で検証する。
// 成功した場合のみitemを更新後の内容に書き換える。
// 他の更新が先行していた場合はmodel.ErrVersionConflictを返す。
func (s *Service) UpdateItem(ctx context.Context, item *model.Item, patch model.ItemPatch) error {
	updated := *item

	if patch.Name != nil {
		if name := Canonicalize(s.sanitizer.Sanitize(*patch.Name)); name != "" {
			if err := validateName(name); err != nil {
				return err
			}
			updated.Name = name
		}
	}
	if patch.Description != nil {
		if description := s.sanitizer.Sanitize(*patch.Description); description != "" {
			if err := validateDescription(description); err != nil {
				return err
			}
			updated.Description = description
		}
	}

	if updated.Name == item.Name && updated.Description == item.Description {
		return nil
	}

	if err := s.items.Update(ctx, &updated); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	slog.Info("item updated",
		slog.Int64("item_id", updated.ID),
		slog.Int64("user_id", updated.UserID),
		slog.String("item", updated.Name),
		slog.Int("version", updated.Version),
	)
	*item = updated
	return nil
}

// DeleteItem は項目を削除する。
func (s *Service) DeleteItem(ctx context.Context, item *model.Item) error {
	if err := s.items.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	slog.Info("item deleted",
		slog.Int64("item_id", item.ID),
		slog.Int64("user_id", item.UserID),
		slog.String("item", item.Name),
	)
	return nil
}
