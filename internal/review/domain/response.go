package domain

import "time"

// SubmitterEmailQuestion は回答マッピングの中で申請者メールアドレスを保持する設問ラベル。
// SurveyGizmo 側のフォーム定義と一致している必要がある。
const SubmitterEmailQuestion = "Submitter Email"

// ResponseStatus holds the three independent workflow flags.
type ResponseStatus struct {
	AccountCreated    bool
	SentPasswordReset bool
	Rejected          bool
}

// SurveyResponse はレビュー対象となる応募回答の集約。
// Email は回答マッピングから抽出した相関キーで、ストア検索の実質的な自然キーとなる。
// Questions は SurveyGizmo から取得した設問ラベル→回答の生データをそのまま保持する。
type SurveyResponse struct {
	ID        string
	Email     string
	Questions map[string]string
	Status    ResponseStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSurveyResponse returns an unsaved response with all flags cleared.
func NewSurveyResponse() *SurveyResponse {
	return &SurveyResponse{Questions: map[string]string{}}
}

// Resolved は承認・却下いずれかの終端状態に達しているかを判定する。
// 承認済み (アカウント作成済み かつ リセットメール送信済み) または却下済みで真。
func (r *SurveyResponse) Resolved() bool {
	return r.Status.Rejected || (r.Status.AccountCreated && r.Status.SentPasswordReset)
}

// SubmitterEmail は回答マッピングから相関メールアドレスを取り出す。未回答なら空文字。
func (r *SurveyResponse) SubmitterEmail() string {
	return r.Questions[SubmitterEmailQuestion]
}
