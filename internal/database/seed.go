package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
)

//go:embed seeddata/catalog.json
var seedFS embed.FS

// SeedData は初期データの構造。カテゴリはシードでのみ作成される。
type SeedData struct {
	Owner struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"owner"`
	Categories []struct {
		Name  string `json:"name"`
		Items []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"items"`
	} `json:"categories"`
}

// LoadSeedData は埋め込みの初期データを読み込む。
func LoadSeedData() (*SeedData, error) {
	raw, err := seedFS.ReadFile("seeddata/catalog.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read seed data: %w", err)
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return &data, nil
}

// Seed は管理ユーザー、カテゴリ、項目を1トランザクションで投入する。
// 既存の行は変更しないため、何度実行しても結果は同じになる。
func Seed(ctx context.Context, db *sql.DB, data *SeedData) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (email, name) VALUES ($1, $2) ON CONFLICT (email) DO NOTHING`,
		data.Owner.Email, data.Owner.Name,
	); err != nil {
		return fmt.Errorf("failed to insert seed owner: %w", err)
	}

	var ownerID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = $1`, data.Owner.Email,
	).Scan(&ownerID); err != nil {
		return fmt.Errorf("failed to find seed owner: %w", err)
	}

	inserted := 0
	for _, c := range data.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			c.Name,
		); err != nil {
			return fmt.Errorf("failed to insert category %q: %w", c.Name, err)
		}

		var categoryID int64
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM categories WHERE name = $1`, c.Name,
		).Scan(&categoryID); err != nil {
			return fmt.Errorf("failed to find category %q: %w", c.Name, err)
		}

		for _, it := range c.Items {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO items (name, description, user_id, category_id)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (category_id, name) DO NOTHING`,
				it.Name, it.Description, ownerID, categoryID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item %q: %w", it.Name, err)
			}
			if n, err := result.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("seed data applied",
		slog.Int("categories", len(data.Categories)),
		slog.Int("items_inserted", inserted),
	)
	return nil
}
