package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/penguin2121/catalogOnline/internal/model"
)

// DefaultCookieName はセッションIDを保持するCookieの既定名。
const DefaultCookieName = "catalog_session"

// Config はセッションCookieの設定。
type Config struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	Domain     string
	// Secret はCookie値の署名鍵。改ざんされたセッションIDは無視される。
	Secret []byte
}

// Manager はCookieとStoreの間でセッションを読み書きする。
type Manager struct {
	store  Store
	config Config
	now    func() time.Time
}

// NewManager はManagerを生成する。
func NewManager(store Store, config Config) *Manager {
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if config.MaxAge <= 0 {
		config.MaxAge = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// Load はリクエストのCookieからセッションを読み込む。
// Cookieがない、署名が不正、またはストアに存在しない場合は新しい空のセッションを返す。
// ストアへの問い合わせに失敗した場合はエラーを返す。
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return m.fresh()
	}

	id, ok := m.verify(cookie.Value)
	if !ok {
		slog.Warn("session cookie signature mismatch",
			slog.String("path", r.URL.Path),
		)
		return m.fresh()
	}

	record, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if record == nil || record.Expired(m.now()) {
		return m.fresh()
	}

	return restore(record.ID, record.Data), nil
}

// Save はセッションの変更をストアに書き戻し、Cookieを設定する。
// 値を持たない新規セッションは保存しない。
// Clear済みで空になった既存セッションはストアから削除し、Cookieを失効させる。
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	s.mu.Lock()
	isNew, dirty, cleared, renew := s.isNew, s.dirty, s.cleared, s.renew
	empty := len(s.values) == 0
	s.mu.Unlock()

	if isNew && empty {
		return nil
	}

	if cleared && empty {
		if err := m.store.Delete(ctx, s.id); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		m.expireCookie(w)
		return nil
	}

	if !dirty && !isNew {
		return nil
	}

	if renew && !isNew {
		if err := m.store.Delete(ctx, s.id); err != nil {
			return fmt.Errorf("failed to delete renewed session: %w", err)
		}
		id, err := generateID()
		if err != nil {
			return fmt.Errorf("failed to generate session ID: %w", err)
		}
		s.mu.Lock()
		s.id = id
		s.mu.Unlock()
	}

	now := m.now()
	record := &model.SessionRecord{
		ID:        s.ID(),
		Data:      s.Values(),
		ExpiresAt: now.Add(m.config.MaxAge),
		CreatedAt: now,
	}
	if err := m.store.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    m.sign(record.ID),
		Path:     "/",
		Domain:   m.config.Domain,
		MaxAge:   int(m.config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	s.mu.Lock()
	s.isNew, s.dirty, s.cleared, s.renew = false, false, false, false
	s.mu.Unlock()
	return nil
}

func (m *Manager) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) fresh() (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	return New(id), nil
}

// sign は "<id>.<HMAC-SHA256署名>" 形式のCookie値を返す。
func (m *Manager) sign(id string) string {
	return id + "." + m.mac(id)
}

// verify はCookie値の署名を検証し、セッションIDを返す。
func (m *Manager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(m.mac(id))) {
		return "", false
	}
	return id, true
}

func (m *Manager) mac(id string) string {
	h := hmac.New(sha256.New, m.config.Secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// generateID は暗号的に安全なセッションIDを生成する。
func generateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
