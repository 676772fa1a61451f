package session

import (
	"context"

	"github.com/penguin2121/catalogOnline/internal/model"
)

// Store はセッションの永続化先。
// repository.PostgresSessionRepoとRedisStoreが実装する。
type Store interface {
	// Load はセッションを取得する。存在しないか期限切れの場合はnilを返す。
	Load(ctx context.Context, id string) (*model.SessionRecord, error)
	// Save はセッションを作成または上書きする。
	Save(ctx context.Context, record *model.SessionRecord) error
	// Delete はセッションを削除する。
	Delete(ctx context.Context, id string) error
}
