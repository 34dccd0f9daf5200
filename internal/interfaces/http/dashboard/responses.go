package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MiroDojkic/surveygizmo-dashboard/internal/interfaces/http/common"
	reviewapp "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/application"
	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

// 承認フローは外部システムを複数またぐため、一覧・詳細より長めのタイムアウトを許容する。
const decisionTimeout = 30 * time.Second

func (h *Handler) approveResponseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID := strings.TrimSpace(chi.URLParam(r, "responseId"))
		if responseID == "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "回答IDが指定されていません"})
			return
		}

		var req reviewDecisionRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, common.MaxResponseRequestBody)).Decode(&req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "リクエストの形式が不正です"})
			return
		}

		accessToken, _ := common.AccessTokenFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), decisionTimeout)
		defer cancel()

		response, err := h.approvals.Approve(ctx, responseID, req.EmailContent, accessToken)
		if err != nil {
			var userErr *reviewdomain.UserDataError
			if errors.As(err, &userErr) {
				common.WriteText(h.logger, w, http.StatusBadRequest, userErr.Message)
				return
			}
			h.logger.Printf("response approve failed responseId=%s err=%v", responseID, err)
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, responseDomainToPayload(*response))
	}
}

func (h *Handler) rejectResponseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID := strings.TrimSpace(chi.URLParam(r, "responseId"))
		if responseID == "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "回答IDが指定されていません"})
			return
		}

		var req reviewDecisionRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, common.MaxResponseRequestBody)).Decode(&req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "リクエストの形式が不正です"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), decisionTimeout)
		defer cancel()

		response, err := h.rejections.Reject(ctx, responseID, req.Email, req.EmailContent)
		if err != nil {
			h.logger.Printf("response reject failed responseId=%s err=%v", responseID, err)
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, responseDomainToPayload(*response))
	}
}

func (h *Handler) responseListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		limit, _ := common.ParsePositiveInt(query.Get("limit"), common.DefaultResponseListLimit)
		page, _ := common.ParsePositiveInt(query.Get("page"), 0)

		filter := reviewapp.ResponseFilter{
			Email:    strings.TrimSpace(query.Get("email")),
			Resolved: common.ParseBoolPtr(query.Get("resolved")),
		}
		paging := reviewapp.Paging{Page: page, Limit: limit}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		responses, err := h.queries.List(ctx, filter, paging)
		if err != nil {
			h.logger.Printf("response list fetch failed: %v", err)
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": "回答一覧の取得に失敗しました"})
			return
		}

		items := make([]surveyResponsePayload, 0, len(responses))
		for _, response := range responses {
			items = append(items, responseDomainToPayload(response))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, responseListPayload{Items: items})
	}
}

func (h *Handler) responseDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := strings.TrimSpace(chi.URLParam(r, "id"))
		if idParam == "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "回答IDが指定されていません"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		response, err := h.queries.Detail(ctx, idParam)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				common.WriteJSON(h.logger, w, http.StatusNotFound, map[string]string{"error": "回答が見つかりません"})
				return
			}
			h.logger.Printf("response detail fetch failed id=%s err=%v", idParam, err)
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": "回答の取得に失敗しました"})
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, responseDomainToPayload(*response))
	}
}
