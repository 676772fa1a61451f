// Package model はドメインモデルを定義する。
package model

import "time"

// User はサインイン済みのユーザーを表す。
// 初回サインイン時に作成され、以降は更新も削除もされない。
type User struct {
	ID        int64
	Email     string // 検索用の業務キー（一意）
	Name      string
	Picture   string // アバター画像のURL
	CreatedAt time.Time
}

// ExternalIdentity は外部IdPで検証済みのユーザー情報を表す。
type ExternalIdentity struct {
	Email   string
	Name    string
	Picture string
}
