package common

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *log.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Printf("JSON エンコードに失敗: %v", err)
	}
}

// WriteText writes a plain-text response body with status.
// 承認エンドポイントのユーザーデータ起因エラー (400) で利用する。
func WriteText(logger *log.Logger, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, message); err != nil && logger != nil {
		logger.Printf("レスポンス本文の書き込みに失敗: %v", err)
	}
}
