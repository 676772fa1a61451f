// Package model はドメインモデルを定義する。
package model

import "time"

// Category は固定の分類ラベルを表す。
// シード処理でのみ作成され、公開インターフェースからは読み取り専用。
type Category struct {
	ID   int64
	Name string // 正規化済みの名前（一意）
}

// Item はカタログの項目を表す。
// 所有者とカテゴリは作成時に決まり、以降変更されない。
type Item struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UserID      int64
	CategoryID  int64
	Version     int // 楽観的ロック用のバージョン
}

// ItemPatch は項目の部分更新内容を表す。
// nilフィールドは既存の値を維持する。
type ItemPatch struct {
	Name        *string
	Description *string
}
