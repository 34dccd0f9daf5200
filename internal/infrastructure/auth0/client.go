// Package auth0 は Auth0 Management API 経由で ID アカウントの作成とパスワードリセット
// チケットの発行を行うクライアントを提供する。
//
// プロセス全体で共有するシングルトンではなく、明示的に構築して注入する依存として扱う。
// 利用後は Close で停止すること。
package auth0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config provides Auth0 tenant settings.
type Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Connection   string
	Timeout      time.Duration
}

// Client は Management API トークンを期限付きでキャッシュしつつ各操作を実行する。
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	connection   string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	closed      bool
}

// NewClient constructs an Auth0 Management API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	domain := strings.TrimRight(strings.TrimSpace(cfg.Domain), "/")
	if !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}
	connection := strings.TrimSpace(cfg.Connection)
	if connection == "" {
		connection = "Username-Password-Authentication"
	}
	return &Client{
		baseURL:      domain,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		connection:   connection,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Close は進行中のリクエストを打ち切り、以降の利用を禁止する。
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.accessToken = ""
	c.mu.Unlock()
	c.httpClient.CloseIdleConnections()
}

// CreateUser はメールアドレスと仮パスワードで ID アカウントを作成する。
// 既存アカウントの場合は Auth0 が 409 を返すため、エラーの扱いは呼び出し側に委ねる。
func (c *Client) CreateUser(ctx context.Context, email, password string) error {
	body := map[string]any{
		"email":      email,
		"password":   password,
		"connection": c.connection,
	}
	var ignored json.RawMessage
	return c.post(ctx, "/api/v2/users", body, &ignored)
}

// ResetPasswordLink はパスワード変更チケットを発行し、そのリンクを返す。
func (c *Client) ResetPasswordLink(ctx context.Context, email string) (string, error) {
	body := map[string]any{
		"email":         email,
		"connection_id": c.connection,
	}
	var payload struct {
		Ticket string `json:"ticket"`
	}
	if err := c.post(ctx, "/api/v2/tickets/password-change", body, &payload); err != nil {
		return "", err
	}
	if payload.Ticket == "" {
		return "", fmt.Errorf("Auth0 がリセットチケットを返しませんでした email=%s", email)
	}
	return payload.Ticket, nil
}

// post は Management API への認証付き POST を行い、レスポンス JSON を out へ展開する。
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	token, err := c.managementToken(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("Auth0 リクエストボディの作成に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("Auth0 リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Auth0 リクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("Auth0 がエラーを返しました: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("Auth0 レスポンスの解析に失敗: %w", err)
	}
	return nil
}

// managementToken は client credentials グラントで Management API トークンを取得する。
// 期限内はキャッシュを返し、取得はミューテックスで直列化する。
func (c *Client) managementToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", fmt.Errorf("Auth0 クライアントは既にクローズされています")
	}
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"audience":      c.baseURL + "/api/v2/",
	})
	if err != nil {
		return "", fmt.Errorf("Auth0 トークンリクエストの作成に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("Auth0 トークンリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Auth0 トークンリクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return "", fmt.Errorf("Auth0 トークン取得でエラーが発生: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("Auth0 トークンレスポンスの解析に失敗: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("Auth0 がアクセストークンを返しませんでした")
	}

	expiresIn := time.Duration(payload.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	c.accessToken = payload.AccessToken
	// 期限ぎりぎりの使用を避けるため 1 分前倒しで失効扱いにする
	c.tokenExpiry = time.Now().Add(expiresIn - time.Minute)
	return c.accessToken, nil
}
