package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/penguin2121/catalogOnline/internal/auth"
	"github.com/penguin2121/catalogOnline/internal/metrics"
	"github.com/penguin2121/catalogOnline/internal/middleware"
	"github.com/penguin2121/catalogOnline/internal/session"
)

// maxAuthCodeSize は/gconnectで受け付ける認可コードの最大バイト数。
const maxAuthCodeSize = 4096

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
// auth.Serviceが実装する。
type AuthServiceInterface interface {
	ClientID() string
	IssueState(sess *session.Session) (string, error)
	Connect(ctx context.Context, sess *session.Session, state, code string) (*auth.ConnectResult, error)
	Disconnect(ctx context.Context, sess *session.Session) (*auth.DisconnectResult, error)
}

// AuthHandler はGoogleサインイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: collector,
	}
}

// Login はstateを発行し、ログインページのビューモデルを返す。
// GET /login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		middleware.WriteInternalServerError(w)
		return
	}

	state, err := h.service.IssueState(sess)
	if err != nil {
		slog.Error("failed to issue oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, loginView{
		State:    state,
		ClientID: h.service.ClientID(),
	})
}

// Connect はブラウザから送られた認可コードでサインインを完了する。
// POST /gconnect?state=xxx (body: 認可コード)
func (h *AuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		middleware.WriteInternalServerError(w)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAuthCodeSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.RecordLogin(metrics.LoginRejected)
			writeJSON(w, http.StatusBadRequest, "Authorization code is too large.")
			return
		}
		h.metrics.RecordLogin(metrics.LoginFailed)
		writeJSON(w, http.StatusBadRequest, "Failed to read the authorization code.")
		return
	}
	code := strings.TrimSpace(string(body))

	result, err := h.service.Connect(r.Context(), sess, r.URL.Query().Get("state"), code)
	if err != nil {
		var ce *auth.ConnectError
		if errors.As(err, &ce) {
			if ce.Status == http.StatusOK {
				h.metrics.RecordLogin(metrics.LoginSucceeded)
			} else {
				h.metrics.RecordLogin(metrics.LoginRejected)
				slog.Warn("sign-in rejected",
					slog.Int("status", ce.Status),
					slog.String("reason", ce.Error()),
				)
			}
			writeJSON(w, ce.Status, ce.Message)
			return
		}
		h.metrics.RecordLogin(metrics.LoginFailed)
		handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordLogin(metrics.LoginSucceeded)
	writeJSON(w, http.StatusOK, welcomeView{
		Name:    result.Name,
		Picture: result.Picture,
		Email:   result.Email,
		UserID:  result.UserID,
	})
}

// Disconnect はアクセストークンを失効させ、トップページへリダイレクトする。
// 失効に失敗した場合もリダイレクトするが、セッションのログイン情報は残る。
// GET /gdisconnect
func (h *AuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		middleware.WriteInternalServerError(w)
		return
	}

	result, err := h.service.Disconnect(r.Context(), sess)
	if err != nil {
		var ce *auth.ConnectError
		if errors.As(err, &ce) {
			writeJSON(w, ce.Status, ce.Message)
			return
		}
		handleServiceError(w, r, err)
		return
	}

	if !result.Revoked {
		slog.Warn("failed to revoke token", slog.Int("status", result.Status))
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
