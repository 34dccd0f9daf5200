// Package mailer はメールゲートウェイ経由で通知メールを送信するクライアントを提供する。
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MiroDojkic/surveygizmo-dashboard/internal/review/application"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Config provides mail gateway settings.
type Config struct {
	Endpoint   string
	From       string
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
}

// Client は application.Mailer を実装する HTTP クライアント。
// 送信は有限回リトライし、最終的に失敗した場合は failed_notifications へ記録した上で
// エラーを返す。オーケストレータは送信失敗を観測できなければならない。
type Client struct {
	logger     *log.Logger
	endpoint   string
	from       string
	httpClient *http.Client
	attempts   int
	retryDelay time.Duration
	failures   *mongo.Collection
}

// NewClient constructs a mail gateway client. failures は nil 可 (記録を無効化)。
func NewClient(logger *log.Logger, cfg Config, failures *mongo.Collection) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		logger:     logger,
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		from:       strings.TrimSpace(cfg.From),
		httpClient: &http.Client{Timeout: timeout},
		attempts:   attempts,
		retryDelay: cfg.RetryDelay,
		failures:   failures,
	}
}

// Send はメール 1 通を送信する。全試行が失敗した場合のみエラーを返す。
func (c *Client) Send(ctx context.Context, mail application.Mail) error {
	if strings.TrimSpace(mail.To) == "" {
		return errors.New("送信先メールアドレスが指定されていません")
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if err := c.post(ctx, mail); err != nil {
			lastErr = err
		} else {
			return nil
		}
		if c.retryDelay > 0 && attempt < c.attempts-1 {
			time.Sleep(c.retryDelay)
		}
	}

	c.recordFailure(ctx, mail, lastErr)
	return lastErr
}

func (c *Client) post(ctx context.Context, mail application.Mail) error {
	payload := map[string]string{
		"from":    c.from,
		"to":      mail.To,
		"subject": mail.Subject,
		"text":    mail.Text,
		"html":    mail.HTML,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("メール送信用ペイロードの作成に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("メール送信リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("メール送信リクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("メールゲートウェイがエラーを返しました: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}
	return nil
}

// recordFailure は未送達メールを failed_notifications へ残す。後続の手動再送の手掛かり。
func (c *Client) recordFailure(ctx context.Context, mail application.Mail, cause error) {
	if c.failures == nil || cause == nil {
		return
	}
	doc := bson.M{
		"failureId": uuid.NewString(),
		"target":    "mail",
		"to":        mail.To,
		"subject":   mail.Subject,
		"error":     cause.Error(),
		"attempts":  c.attempts,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	}
	if _, err := c.failures.InsertOne(ctx, doc); err != nil && c.logger != nil {
		c.logger.Printf("failed_notifications への保存に失敗: %v", err)
	}
}
