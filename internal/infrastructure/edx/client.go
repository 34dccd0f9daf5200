// Package edx は edX 側にアフィリエイトエンティティを作成するクライアントを提供する。
package edx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config provides connection settings for the edX affiliate API.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client は application.AffiliatePlatform を実装する HTTP クライアント。
// 認証はオーケストレーション呼び出し元のアクセストークンをそのまま引き回す。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs an edX affiliate API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateAffiliateEntity は回答マッピングからアフィリエイトエンティティを作成する。
func (c *Client) CreateAffiliateEntity(ctx context.Context, accessToken string, questions map[string]string) error {
	body, err := json.Marshal(map[string]any{"questions": questions})
	if err != nil {
		return fmt.Errorf("edX リクエストボディの作成に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/affiliates/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("edX リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(accessToken))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("edX リクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("edX がエラーを返しました: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}
	return nil
}
