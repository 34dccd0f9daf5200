package dashboard

import (
	"time"

	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
)

type reviewDecisionRequest struct {
	Email        string `json:"email"`
	EmailContent string `json:"emailContent"`
}

type responseStatusPayload struct {
	AccountCreated    bool `json:"accountCreated"`
	SentPasswordReset bool `json:"sentPasswordReset"`
	Rejected          bool `json:"rejected"`
}

type surveyResponsePayload struct {
	ID        string                `json:"id"`
	Email     string                `json:"email"`
	Questions map[string]string     `json:"questions"`
	Status    responseStatusPayload `json:"status"`
	Resolved  bool                  `json:"resolved"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type responseListPayload struct {
	Items []surveyResponsePayload `json:"items"`
}

// responseDomainToPayload はドメインエンティティをダッシュボード用レスポンスへ変換する。
func responseDomainToPayload(response reviewdomain.SurveyResponse) surveyResponsePayload {
	return surveyResponsePayload{
		ID:        response.ID,
		Email:     response.Email,
		Questions: response.Questions,
		Status: responseStatusPayload{
			AccountCreated:    response.Status.AccountCreated,
			SentPasswordReset: response.Status.SentPasswordReset,
			Rejected:          response.Status.Rejected,
		},
		Resolved:  response.Resolved(),
		CreatedAt: response.CreatedAt,
		UpdatedAt: response.UpdatedAt,
	}
}
