package application

import (
	"context"
	"fmt"
	"log"

	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
)

const rejectionSubject = "FastTrac Application Rejected"

// rejectionService は却下フローを担うオーケストレータ。承認パスと異なり冪等性ゲートを持たない。
type rejectionService struct {
	logger *log.Logger
	store  ResponseStore
	source ResponseSource
	mailer Mailer
}

// NewRejectionService wires the rejection pipeline dependencies.
func NewRejectionService(logger *log.Logger, store ResponseStore, source ResponseSource, mailer Mailer) RejectionService {
	return &rejectionService{
		logger: logger,
		store:  store,
		source: source,
		mailer: mailer,
	}
}

// Reject は回答取得→レコード解決→データ保存→却下フラグ→通知メールの順で実行する。
//
// レコードは取得データ内の相関メールアドレスで検索・保存するが、通知メールは
// 呼び出し元が指定した email パラメータへ送る。両者は一致しない場合がある。
func (s *rejectionService) Reject(ctx context.Context, responseID, email, emailContent string) (*reviewdomain.SurveyResponse, error) {
	data, err := s.source.ResponseData(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("回答データの取得に失敗 responseId=%s: %w", responseID, err)
	}

	submitterEmail := data.Questions[reviewdomain.SubmitterEmailQuestion]
	response, err := s.store.FindByEmail(ctx, submitterEmail)
	if err != nil {
		return nil, fmt.Errorf("既存レコードの検索に失敗 email=%s: %w", submitterEmail, err)
	}
	if response == nil {
		response = reviewdomain.NewSurveyResponse()
	}
	response.Email = submitterEmail

	if err := s.store.SetData(ctx, response, data.Questions); err != nil {
		return nil, fmt.Errorf("回答データの保存に失敗 email=%s: %w", submitterEmail, err)
	}
	if err := s.store.SetRejected(ctx, response); err != nil {
		return nil, fmt.Errorf("rejected フラグの保存に失敗 email=%s: %w", submitterEmail, err)
	}

	if err := s.mailer.Send(ctx, Mail{To: email, Subject: rejectionSubject, Text: emailContent, HTML: emailContent}); err != nil {
		return nil, fmt.Errorf("却下メールの送信に失敗 to=%s: %w", email, err)
	}

	return response, nil
}
