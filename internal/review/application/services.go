package application

import (
	"context"

	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
)

// ResponseStore exposes persistence operations for survey responses.
// FindByEmail は該当レコード無しを (nil, nil) で表現する。不在はエラーではない。
// 各ミューテータはフラグ設定とドキュメント保存を同期的に行い、未保存レコードは初回保存時に ID が採番される。
type ResponseStore interface {
	FindByEmail(ctx context.Context, email string) (*reviewdomain.SurveyResponse, error)
	FindByID(ctx context.Context, id string) (*reviewdomain.SurveyResponse, error)
	Find(ctx context.Context, filter ResponseFilter, paging Paging) ([]reviewdomain.SurveyResponse, error)
	SetData(ctx context.Context, response *reviewdomain.SurveyResponse, questions map[string]string) error
	SetAccountCreated(ctx context.Context, response *reviewdomain.SurveyResponse) error
	SetSentPasswordReset(ctx context.Context, response *reviewdomain.SurveyResponse) error
	SetRejected(ctx context.Context, response *reviewdomain.SurveyResponse) error
}

// ResponseSource fetches raw answer data for a response identifier.
type ResponseSource interface {
	ResponseData(ctx context.Context, responseID string) (ResponseData, error)
}

// ResponseData は外部ソースから取得した設問ラベル→回答のマッピング。
type ResponseData struct {
	Questions map[string]string
}

// IdentityProvider provisions accounts and mints password-reset links.
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password string) error
	ResetPasswordLink(ctx context.Context, email string) (string, error)
}

// AffiliatePlatform creates the downstream learning-platform entity.
type AffiliatePlatform interface {
	CreateAffiliateEntity(ctx context.Context, accessToken string, questions map[string]string) error
}

// Mail は通知メール 1 通分のペイロード。Text と HTML は同一内容を想定している。
type Mail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends notification emails.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// ResponseFilter expresses dashboard search criteria.
type ResponseFilter struct {
	Email    string
	Resolved *bool
}

// Paging controls pagination.
type Paging struct {
	Page  int
	Limit int
}

// ApprovalService describes the approve use-case.
type ApprovalService interface {
	Approve(ctx context.Context, responseID, emailContent, accessToken string) (*reviewdomain.SurveyResponse, error)
}

// RejectionService describes the reject use-case.
type RejectionService interface {
	Reject(ctx context.Context, responseID, email, emailContent string) (*reviewdomain.SurveyResponse, error)
}

// ResponseQueryService describes dashboard read use-cases.
type ResponseQueryService interface {
	List(ctx context.Context, filter ResponseFilter, paging Paging) ([]reviewdomain.SurveyResponse, error)
	Detail(ctx context.Context, id string) (*reviewdomain.SurveyResponse, error)
}
