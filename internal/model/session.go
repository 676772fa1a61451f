// Package model はドメインモデルを定義する。
package model

import "time"

// SessionRecord はセッションストアに永続化されるセッションを表す。
// Dataはセッションキーから値への写像で、コアは値を不透明な文字列として扱う。
type SessionRecord struct {
	ID        string
	Data      map[string]string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが指定時刻時点で期限切れかどうかを返す。
func (s *SessionRecord) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
