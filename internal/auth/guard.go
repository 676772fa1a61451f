package auth

import (
	"fmt"
	"strconv"

	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/penguin2121/catalogOnline/internal/session"
)

// RequireAuthenticated はセッションのユーザーIDを返す。
// セッションにユーザーIDがない場合はmodel.ErrNotAuthenticatedを返す。
// 呼び出し側はこれをログイン画面へのリダイレクトとして扱う。
func RequireAuthenticated(sess *session.Session) (int64, error) {
	if sess == nil {
		return 0, model.ErrNotAuthenticated
	}
	raw, ok := sess.Get(KeyUserID)
	if !ok || raw == "" {
		return 0, model.ErrNotAuthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed user id in session: %w", model.ErrNotAuthenticated)
	}
	return id, nil
}

// AssertOwner はuserIDが項目の所有者であることを確認する。
// 編集・削除だけでなく、そのフォームを表示する前にも呼び出すこと。
func AssertOwner(userID int64, item *model.Item) error {
	if item == nil || item.UserID != userID {
		return fmt.Errorf("user %d may not modify item: %w", userID, model.ErrNotOwner)
	}
	return nil
}
