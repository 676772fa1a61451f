// Package session はリクエスト単位のセッションオブジェクトと、
// Cookieとセッションストアの間の読み書きを提供する。
//
// セッションはリクエスト開始時にストアから読み込まれ、
// レスポンスの書き出し前にストアへ書き戻される。グローバルな状態は持たない。
package session

import (
	"context"
	"sync"
)

// Session は1つのブラウザセッションに紐づくキーと値の集合。
// 値は不透明な文字列として扱う。
type Session struct {
	mu      sync.Mutex
	id      string
	values  map[string]string
	isNew   bool
	dirty   bool
	cleared bool
	renew   bool
}

// New は空のセッションを生成する。idはストアに保存する際のキー。
func New(id string) *Session {
	return &Session{
		id:     id,
		values: map[string]string{},
		isNew:  true,
	}
}

// restore はストアから読み込んだ値でセッションを復元する。
func restore(id string, values map[string]string) *Session {
	if values == nil {
		values = map[string]string{}
	}
	return &Session{id: id, values: values}
}

// ID はセッションIDを返す。
func (s *Session) ID() string {
	return s.id
}

// IsNew はこのリクエストで新規に発行されたセッションかどうかを返す。
func (s *Session) IsNew() bool {
	return s.isNew
}

// Get はキーに対応する値を返す。
func (s *Session) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set はキーに値を設定する。
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.values[key]; ok && cur == value {
		return
	}
	s.values[key] = value
	s.dirty = true
}

// Delete はキーを削除する。存在しないキーの場合は何もしない。
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// Clear は全てのキーを削除する。ログアウト時に使う。
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	s.dirty = true
	s.cleared = true
}

// Renew は次回の保存時にセッションIDを振り直すよう指示する。
// ログイン成功時に呼び出し、ログイン前のIDを使い続けられないようにする。
func (s *Session) Renew() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renew = true
	s.dirty = true
}

// Len は保持しているキーの数を返す。
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Values は値のコピーを返す。
func (s *Session) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Dirty はリクエスト中に値が変更されたかどうかを返す。
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

type contextKey struct{}

// NewContext はセッションを格納したコンテキストを返す。
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext はコンテキストからセッションを取得する。
// セッションミドルウェアを通過していない場合はnilを返す。
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
