// Package surveygizmo は SurveyGizmo REST API v5 から回答データを取得するクライアントを提供する。
package surveygizmo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MiroDojkic/surveygizmo-dashboard/internal/review/application"
)

// Config provides connection settings for the SurveyGizmo API.
type Config struct {
	BaseURL   string
	SurveyID  string
	APIToken  string
	APISecret string
	Timeout   time.Duration
}

// Client は application.ResponseSource を実装する HTTP クライアント。
type Client struct {
	baseURL    string
	surveyID   string
	apiToken   string
	apiSecret  string
	httpClient *http.Client
}

// NewClient constructs a SurveyGizmo REST client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		surveyID:   strings.TrimSpace(cfg.SurveyID),
		apiToken:   cfg.APIToken,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// surveyResponsePayload は v5 API のレスポンス形式のうち必要な部分だけを写し取ったもの。
type surveyResponsePayload struct {
	ResultOK   bool                  `json:"result_ok"`
	SurveyData map[string]answerItem `json:"survey_data"`
}

type answerItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ResponseData は回答 ID を指定して設問ラベル→回答のマッピングを取得する。
func (c *Client) ResponseData(ctx context.Context, responseID string) (application.ResponseData, error) {
	endpoint := fmt.Sprintf("%s/v5/survey/%s/surveyresponse/%s", c.baseURL, url.PathEscape(c.surveyID), url.PathEscape(strings.TrimSpace(responseID)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return application.ResponseData{}, fmt.Errorf("SurveyGizmo リクエストの作成に失敗: %w", err)
	}
	query := req.URL.Query()
	query.Set("api_token", c.apiToken)
	query.Set("api_token_secret", c.apiSecret)
	req.URL.RawQuery = query.Encode()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return application.ResponseData{}, fmt.Errorf("SurveyGizmo リクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return application.ResponseData{}, fmt.Errorf("SurveyGizmo がエラーを返しました: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}

	var payload surveyResponsePayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return application.ResponseData{}, fmt.Errorf("SurveyGizmo レスポンスの解析に失敗: %w", err)
	}
	if !payload.ResultOK {
		return application.ResponseData{}, fmt.Errorf("SurveyGizmo が result_ok=false を返しました responseId=%s", responseID)
	}

	questions := make(map[string]string, len(payload.SurveyData))
	for _, item := range payload.SurveyData {
		label := strings.TrimSpace(item.Question)
		if label == "" {
			continue
		}
		questions[label] = item.Answer
	}
	return application.ResponseData{Questions: questions}, nil
}
