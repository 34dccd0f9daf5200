package application

import (
	"context"
	"fmt"
	"log"

	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
)

// 承認フローで使う固定文言。テンプレートと合成済み本文は別名で扱う (シャドーイング禁止)。
const (
	resetPasswordTemplate = "Please reset your Kauffman FastTrac account by clicking the link: "
	resetPasswordSubject  = "Password reset link for Kauffman FastTrac account"
	approvalSubject       = "Kauffman FastTrac Affiliate Approval"

	// placeholderPassword はアカウント作成時の仮パスワード。初回ログイン前にリセットされる前提。
	placeholderPassword = "passverd"
)

// approvalService は承認パイプラインを統括するオーケストレータ。
// 4 つの外部システム (回答ソース・ID プロバイダ・メール送信・プラットフォーム連携) と
// 永続ストアを規定の順序で駆動し、解決済みレコードに対しては副作用ゼロで短絡する。
type approvalService struct {
	logger   *log.Logger
	store    ResponseStore
	source   ResponseSource
	identity IdentityProvider
	platform AffiliatePlatform
	mailer   Mailer
}

// NewApprovalService wires the approval pipeline dependencies.
func NewApprovalService(logger *log.Logger, store ResponseStore, source ResponseSource, identity IdentityProvider, platform AffiliatePlatform, mailer Mailer) ApprovalService {
	return &approvalService{
		logger:   logger,
		store:    store,
		source:   source,
		identity: identity,
		platform: platform,
		mailer:   mailer,
	}
}

// Approve は回答取得→冪等性ゲート→アカウント作成→永続化→通知→プラットフォーム連携の順で実行する。
//
// アカウント作成の失敗は致命的ではない。前回の部分実行で既に作成済みの可能性があるため、
// ログだけ残して後続ステップを継続する。プラットフォーム連携は応募者向けメール送信の
// 後に置き、連携先の障害が応募者への通知を妨げないようにしている。
func (s *approvalService) Approve(ctx context.Context, responseID, emailContent, accessToken string) (*reviewdomain.SurveyResponse, error) {
	data, err := s.source.ResponseData(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("回答データの取得に失敗 responseId=%s: %w", responseID, err)
	}

	email := data.Questions[reviewdomain.SubmitterEmailQuestion]
	if email == "" {
		return nil, reviewdomain.NewUserDataError(fmt.Sprintf("response %s has no %q answer", responseID, reviewdomain.SubmitterEmailQuestion))
	}

	response, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("既存レコードの検索に失敗 email=%s: %w", email, err)
	}
	if response != nil && response.Resolved() {
		return response, nil
	}
	if response == nil {
		response = reviewdomain.NewSurveyResponse()
	}
	response.Email = email

	if err := s.identity.CreateUser(ctx, email, placeholderPassword); err != nil {
		s.logger.Printf("アカウント作成に失敗 email=%s: %v", email, err)
	} else if err := s.store.SetAccountCreated(ctx, response); err != nil {
		s.logger.Printf("accountCreated フラグの保存に失敗 email=%s: %v", email, err)
	}

	if err := s.store.SetData(ctx, response, data.Questions); err != nil {
		return nil, fmt.Errorf("回答データの保存に失敗 email=%s: %w", email, err)
	}

	resetLink, err := s.identity.ResetPasswordLink(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("パスワードリセットリンクの取得に失敗 email=%s: %w", email, err)
	}
	resetMessage := resetPasswordTemplate + resetLink

	if err := s.mailer.Send(ctx, Mail{To: email, Subject: resetPasswordSubject, Text: resetMessage, HTML: resetMessage}); err != nil {
		return nil, fmt.Errorf("リセットメールの送信に失敗 email=%s: %w", email, err)
	}
	if err := s.mailer.Send(ctx, Mail{To: email, Subject: approvalSubject, Text: emailContent, HTML: emailContent}); err != nil {
		return nil, fmt.Errorf("承認メールの送信に失敗 email=%s: %w", email, err)
	}

	if err := s.store.SetSentPasswordReset(ctx, response); err != nil {
		return nil, fmt.Errorf("sentPasswordReset フラグの保存に失敗 email=%s: %w", email, err)
	}

	if err := s.platform.CreateAffiliateEntity(ctx, accessToken, response.Questions); err != nil {
		return nil, fmt.Errorf("アフィリエイトエンティティの作成に失敗 email=%s: %w", email, err)
	}

	return response, nil
}
