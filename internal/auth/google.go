package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultGoogleTokenURL     = "https://oauth2.googleapis.com/token"
	defaultGoogleTokenInfoURL = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	defaultGoogleUserInfoURL  = "https://www.googleapis.com/oauth2/v1/userinfo"
	defaultGoogleRevokeURL    = "https://accounts.google.com/o/oauth2/revoke"
)

// GoogleConfig はGoogleサインインの設定。
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// RedirectURL はワンタイムコードの交換時に送るredirect_uri。
	// ブラウザのJavaScriptで取得したコードの場合は "postmessage"。
	RedirectURL string

	// テスト用にオーバーライド可能なURL
	TokenURL     string
	TokenInfoURL string
	UserInfoURL  string
	RevokeURL    string

	HTTPClient *http.Client
}

// Credentials は認可コードの交換で得たトークン。
type Credentials struct {
	AccessToken string
	IDToken     string
	// Subject はid_tokenのsubクレーム（GoogleアカウントID）。
	Subject string
}

// TokenInfo はtokeninfoエンドポイントによるアクセストークンの検証結果。
type TokenInfo struct {
	UserID   string `json:"user_id"`
	IssuedTo string `json:"issued_to"`
	Error    string `json:"error"`
}

// UserInfo はuserinfoエンドポイントから取得したプロフィール。
type UserInfo struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email"`
}

// IdentityProvider は外部IdPとの通信のインターフェース。
type IdentityProvider interface {
	// ExchangeCode は認可コードをトークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*Credentials, error)
	// TokenInfo はアクセストークンの発行先と利用者を取得する。
	TokenInfo(ctx context.Context, accessToken string) (*TokenInfo, error)
	// UserInfo はアクセストークンでプロフィールを取得する。
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
	// Revoke はアクセストークンを失効させ、エンドポイントのHTTPステータスを返す。
	Revoke(ctx context.Context, accessToken string) (int, error)
}

// GoogleProvider はGoogleのOAuth 2.0エンドポイントと通信する。
type GoogleProvider struct {
	config GoogleConfig
	client *http.Client
}

// NewGoogleProvider はGoogleProviderを生成する。
func NewGoogleProvider(config GoogleConfig) *GoogleProvider {
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.TokenInfoURL == "" {
		config.TokenInfoURL = defaultGoogleTokenInfoURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}
	if config.RevokeURL == "" {
		config.RevokeURL = defaultGoogleRevokeURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleProvider{config: config, client: client}
}

// googleTokenResponse はGoogleのトークンエンドポイントのレスポンス。
type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// ExchangeCode は認可コードをアクセストークンとid_tokenに交換する。
// id_tokenはTLSでトークンエンドポイントから直接受け取るため署名は検証せず、subだけを取り出す。
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*Credentials, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := p.do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", status, string(body))
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	subject, err := subjectFromIDToken(tokenResp.IDToken)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		AccessToken: tokenResp.AccessToken,
		IDToken:     tokenResp.IDToken,
		Subject:     subject,
	}, nil
}

// subjectFromIDToken はid_tokenのsubクレームを取り出す。
func subjectFromIDToken(idToken string) (string, error) {
	if idToken == "" {
		return "", fmt.Errorf("empty id_token in response")
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return "", fmt.Errorf("failed to parse id_token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("empty sub in id_token")
	}
	return claims.Subject, nil
}

// TokenInfo はアクセストークンの検証結果を取得する。
// 無効なトークンの場合もエンドポイントの返すerrorフィールドをそのまま返す。
func (p *GoogleProvider) TokenInfo(ctx context.Context, accessToken string) (*TokenInfo, error) {
	u := p.config.TokenInfoURL + "?" + url.Values{"access_token": {accessToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	body, _, err := p.do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}

	var info TokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse tokeninfo response: %w", err)
	}
	return &info, nil
}

// UserInfo はアクセストークンでGoogleのプロフィールを取得する。
func (p *GoogleProvider) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	u := p.config.UserInfoURL + "?" + url.Values{"access_token": {accessToken}, "alt": {"json"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	body, status, err := p.do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", status, string(body))
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("empty email in user info response")
	}
	return &info, nil
}

// Revoke はアクセストークンを失効させる。
func (p *GoogleProvider) Revoke(ctx context.Context, accessToken string) (int, error) {
	u := p.config.RevokeURL + "?" + url.Values{"token": {accessToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create revoke request: %w", err)
	}

	_, status, err := p.do(req)
	if err != nil {
		return 0, fmt.Errorf("revoke request failed: %w", err)
	}
	return status, nil
}

// do はリクエストを送信し、レスポンスボディとステータスコードを返す。
func (p *GoogleProvider) do(req *http.Request) ([]byte, int, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// compile-time interface check
var _ IdentityProvider = (*GoogleProvider)(nil)
