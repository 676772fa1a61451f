// Package auth はGoogleサインインのフロー（state発行、接続、切断）と
// 認証・所有者チェックのガードを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/penguin2121/catalogOnline/internal/session"
)

// セッションに保存するキー。
const (
	KeyState       = "state"
	KeyAccessToken = "access_token"
	KeyGPlusID     = "gplus_id"
	KeyUsername    = "username"
	KeyPicture     = "picture"
	KeyEmail       = "email"
	KeyUserID      = "user_id"
)

const (
	stateLength   = 32
	stateAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ConnectError はサインインの検証失敗を表す。
// Statusはそのままレスポンスのステータスコードとして使う。
type ConnectError struct {
	Status  int
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap は原因となったエラーを返す。
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// 定義済みの検証失敗メッセージ
const (
	MsgInvalidState     = "Invalid state parameter."
	MsgExchangeFailed   = "Failed to upgrade the authorization code."
	MsgSubjectMismatch  = "Token's user ID doesn't match given user ID."
	MsgAudienceMismatch = "Token's client ID does not match app's."
	MsgAlreadyConnected = "User is already connected."
	MsgNotConnected     = "User not connected."
)

// UserResolver は外部IDからローカルユーザーを解決するインターフェース。
// user.Serviceが実装する。
type UserResolver interface {
	ResolveOrCreateUser(ctx context.Context, email, name, picture string) (int64, error)
}

// Service はサインインのフローを提供する。
type Service struct {
	provider IdentityProvider
	users    UserResolver
	clientID string
}

// NewService はServiceを生成する。clientIDはtokeninfoのissued_toと照合する。
func NewService(provider IdentityProvider, users UserResolver, clientID string) *Service {
	return &Service{
		provider: provider,
		users:    users,
		clientID: clientID,
	}
}

// ClientID はログイン画面に渡すクライアントIDを返す。
func (s *Service) ClientID() string {
	return s.clientID
}

// ConnectResult はサインイン成功時のプロフィール。
type ConnectResult struct {
	UserID  int64
	Name    string
	Picture string
	Email   string
}

// DisconnectResult はトークン失効の結果。
type DisconnectResult struct {
	// Revoked はIdPが失効を受け付け、セッションのログイン情報を削除したかどうか。
	Revoked bool
	// Status はrevokeエンドポイントのHTTPステータス。通信に失敗した場合は0。
	Status int
}

// IssueState は32文字の英大文字・数字からなるstateを生成し、セッションに保存する。
func (s *Service) IssueState(sess *session.Session) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	sess.Set(KeyState, state)
	return state, nil
}

// Connect はブラウザから受け取った認可コードでサインインを完了する。
// stateの照合はストアへの書き込みより前に行う。
// 検証に失敗した場合は*ConnectErrorを返す。既に同じアカウントで接続済みの場合は
// Status 200の*ConnectErrorを返し、セッションを変更しない。
func (s *Service) Connect(ctx context.Context, sess *session.Session, state, code string) (*ConnectResult, error) {
	stored, ok := sess.Get(KeyState)
	if !ok || state == "" || state != stored {
		slog.Warn("oauth state mismatch")
		return nil, &ConnectError{Status: http.StatusUnauthorized, Message: MsgInvalidState}
	}
	sess.Delete(KeyState)

	creds, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, &ConnectError{Status: http.StatusUnauthorized, Message: MsgExchangeFailed, Err: err}
	}

	info, err := s.provider.TokenInfo(ctx, creds.AccessToken)
	if err != nil {
		return nil, &ConnectError{Status: http.StatusInternalServerError, Message: "Failed to verify the access token.", Err: err}
	}
	if info.Error != "" {
		return nil, &ConnectError{Status: http.StatusInternalServerError, Message: info.Error}
	}
	if info.UserID != creds.Subject {
		return nil, &ConnectError{Status: http.StatusUnauthorized, Message: MsgSubjectMismatch}
	}
	if info.IssuedTo != s.clientID {
		slog.Warn("token issued to another client",
			slog.String("issued_to", info.IssuedTo),
		)
		return nil, &ConnectError{Status: http.StatusUnauthorized, Message: MsgAudienceMismatch}
	}

	_, hasToken := sess.Get(KeyAccessToken)
	storedSubject, _ := sess.Get(KeyGPlusID)
	if hasToken && storedSubject == creds.Subject {
		return nil, &ConnectError{Status: http.StatusOK, Message: MsgAlreadyConnected}
	}

	profile, err := s.provider.UserInfo(ctx, creds.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	userID, err := s.users.ResolveOrCreateUser(ctx, profile.Email, profile.Name, profile.Picture)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	sess.Renew()
	sess.Set(KeyAccessToken, creds.AccessToken)
	sess.Set(KeyGPlusID, creds.Subject)
	sess.Set(KeyUsername, profile.Name)
	sess.Set(KeyPicture, profile.Picture)
	sess.Set(KeyEmail, profile.Email)
	sess.Set(KeyUserID, strconv.FormatInt(userID, 10))

	slog.Info("user connected",
		slog.Int64("user_id", userID),
	)

	return &ConnectResult{
		UserID:  userID,
		Name:    profile.Name,
		Picture: profile.Picture,
		Email:   profile.Email,
	}, nil
}

// Disconnect はアクセストークンを失効させる。
// IdPが200を返した場合のみセッションを空にする。
// セッションにアクセストークンがない場合はStatus 401の*ConnectErrorを返す。
func (s *Service) Disconnect(ctx context.Context, sess *session.Session) (*DisconnectResult, error) {
	token, ok := sess.Get(KeyAccessToken)
	if !ok || token == "" {
		return nil, &ConnectError{Status: http.StatusUnauthorized, Message: MsgNotConnected}
	}

	status, err := s.provider.Revoke(ctx, token)
	if err != nil {
		slog.Error("failed to revoke token", slog.String("error", err.Error()))
		return &DisconnectResult{}, nil
	}
	if status != http.StatusOK {
		slog.Warn("failed to revoke token", slog.Int("status", status))
		return &DisconnectResult{Status: status}, nil
	}

	// 次の保存でセッション行ごと削除され、Cookieも失効する
	sess.Clear()
	slog.Info("user disconnected")

	return &DisconnectResult{Revoked: true, Status: status}, nil
}

// generateState は暗号的に安全なstateを生成する。
// 剰余の偏りを避けるため、alphabetの長さの倍数を超えるバイトは捨てる。
func generateState() (string, error) {
	const limit = 256 - 256%len(stateAlphabet)

	out := make([]byte, 0, stateLength)
	buf := make([]byte, stateLength)
	for len(out) < stateLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, stateAlphabet[int(b)%len(stateAlphabet)])
			if len(out) == stateLength {
				break
			}
		}
	}
	return string(out), nil
}
