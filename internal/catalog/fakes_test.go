package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/penguin2121/catalogOnline/internal/model"
)

// memCategoryRepo はテスト用のインメモリCategoryRepository。
type memCategoryRepo struct {
	mu         sync.Mutex
	categories []*model.Category
	err        error
}

func (r *memCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*model.Category, len(r.categories))
	copy(out, r.categories)
	return out, nil
}

func (r *memCategoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, c := range r.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	category.ID = int64(len(r.categories) + 1)
	cp := *category
	r.categories = append(r.categories, &cp)
	return nil
}

// memItemRepo はテスト用のインメモリItemRepository。
// 作成日時は呼び出しごとに1秒ずつ進む擬似時計で採番する。
type memItemRepo struct {
	mu     sync.Mutex
	items  map[int64]*model.Item
	nextID int64
	clock  time.Time

	// allowDuplicates を立てると一意制約を無視して同名の項目を作成できる。
	allowDuplicates bool
	err             error
	updateCalls     int
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{
		items: map[int64]*model.Item{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memItemRepo) ListByCategory(ctx context.Context, categoryID int64) ([]*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*model.Item
	for _, it := range r.items {
		if it.CategoryID == categoryID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memItemRepo) ListRecent(ctx context.Context, limit int) ([]*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*model.Item
	for _, it := range r.items {
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memItemRepo) FindByCategoryAndName(ctx context.Context, categoryID int64, name string) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var found []*model.Item
	for _, it := range r.items {
		if it.CategoryID == categoryID && it.Name == name {
			cp := *it
			found = append(found, &cp)
		}
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("items named %q: %w", name, model.ErrAmbiguousLookup)
	}
}

func (r *memItemRepo) hasName(categoryID int64, name string, exceptID int64) bool {
	for _, it := range r.items {
		if it.CategoryID == categoryID && it.Name == name && it.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *memItemRepo) Create(ctx context.Context, item *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if !r.allowDuplicates && r.hasName(item.CategoryID, item.Name, 0) {
		return model.ErrDuplicateItem
	}
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	item.ID = r.nextID
	item.CreatedAt = r.clock
	item.Version = 1
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *memItemRepo) Update(ctx context.Context, item *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.err != nil {
		return r.err
	}
	stored, ok := r.items[item.ID]
	if !ok || stored.Version != item.Version {
		return fmt.Errorf("item %d: %w", item.ID, model.ErrVersionConflict)
	}
	if r.hasName(item.CategoryID, item.Name, item.ID) {
		return model.ErrDuplicateItem
	}
	item.Version++
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *memItemRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// passthroughSanitizer は入力をそのまま返すサニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(s string) string { return s }
