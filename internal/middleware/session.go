// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/penguin2121/catalogOnline/internal/auth"
	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/penguin2121/catalogOnline/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// SessionManager はセッションの読み込みと保存に必要なインターフェース。
// session.Managerが実装する。
type SessionManager interface {
	Load(ctx context.Context, r *http.Request) (*session.Session, error)
	Save(ctx context.Context, w http.ResponseWriter, s *session.Session) error
}

// NewSessionMiddleware はリクエスト開始時にセッションを読み込み、
// コンテキストに注入するミドルウェアを返す。
// セッションはレスポンスの最初の書き込みの直前に保存される。
// ストアに到達できない場合は503を返す。
// 未ログインのリクエストも拒否しない。認証の要否はハンドラーがauth.RequireAuthenticatedで判断する。
func NewSessionMiddleware(manager SessionManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := manager.Load(r.Context(), r)
			if err != nil {
				slog.Error("failed to load session",
					slog.String("error", err.Error()),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				)
				WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableAPIError())
				return
			}

			ctx := session.NewContext(r.Context(), sess)
			sw := &sessionWriter{
				ResponseWriter: w,
				ctx:            ctx,
				manager:        manager,
				sess:           sess,
			}

			next.ServeHTTP(sw, r.WithContext(ctx))

			// 何も書き込まなかったハンドラーのセッションもここで保存する
			sw.commit()

			if userID, ok := sess.Get(auth.KeyUserID); ok {
				setLogUserID(r.Context(), userID)
			}
		})
	}
}

// sessionWriter は最初のWriteHeader/Writeの直前にセッションを保存する。
// Set-Cookieヘッダーはボディより前に送る必要があるため、リクエスト終了時ではなくここで保存する。
type sessionWriter struct {
	http.ResponseWriter
	ctx     context.Context
	manager SessionManager
	sess    *session.Session

	committed bool
	failed    bool
}

// commit はセッションを一度だけ保存し、レスポンスを続けてよいかを返す。
// 保存に失敗した場合は503を書き込み、以降のハンドラーの書き込みを捨てる。
func (sw *sessionWriter) commit() bool {
	if sw.committed {
		return !sw.failed
	}
	sw.committed = true

	if err := sw.manager.Save(sw.ctx, sw.ResponseWriter, sw.sess); err != nil {
		slog.Error("failed to save session",
			slog.String("error", err.Error()),
			slog.String("request_id", RequestIDFromContext(sw.ctx)),
		)
		sw.failed = true
		WriteErrorResponse(sw.ResponseWriter, http.StatusServiceUnavailable, model.NewStoreUnavailableAPIError())
		return false
	}
	return true
}

// WriteHeader はセッションを保存してからステータスコードを書き込む。
func (sw *sessionWriter) WriteHeader(code int) {
	if !sw.commit() {
		return
	}
	sw.ResponseWriter.WriteHeader(code)
}

// Write はセッションを保存してからボディを書き込む。
func (sw *sessionWriter) Write(b []byte) (int, error) {
	if !sw.commit() {
		return len(b), nil
	}
	return sw.ResponseWriter.Write(b)
}

// Unwrap はhttp.ResponseControllerのために元のResponseWriterを返す。
func (sw *sessionWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
