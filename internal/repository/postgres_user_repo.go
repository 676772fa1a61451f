package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/penguin2121/catalogOnline/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail はメールアドレスでユーザーを検索する。
// 一意制約があるため通常は0件か1件だが、2件目を読んだ場合は整合性エラーとする。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, name, picture, created_at FROM users WHERE email = $1 LIMIT 2`,
		email,
	)
	if err != nil {
		return nil, wrapError("find user by email", err)
	}
	defer rows.Close()

	var found []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Picture, &user.CreatedAt); err != nil {
			return nil, wrapError("scan user", err)
		}
		found = append(found, user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("iterate users", err)
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("users with email %q: %w", email, model.ErrAmbiguousLookup)
	}
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, name, picture)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		user.Email, user.Name, user.Picture,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return wrapError("insert user", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
