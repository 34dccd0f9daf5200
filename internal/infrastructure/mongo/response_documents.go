package mongo

import (
	"time"

	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionDocument は設問 1 件分のラベルと回答を保持する埋め込みドキュメント。
// 設問ラベルには任意の文字 (ドットや $ を含む) が現れうるため、マップキーではなく
// ラベル/値ペアの配列として永続化する。
type QuestionDocument struct {
	Label  string `bson:"label"`
	Answer string `bson:"answer"`
}

// ResponseStatusDocument は承認ワークフローの 3 フラグを格納する。
type ResponseStatusDocument struct {
	AccountCreated    bool `bson:"accountCreated"`
	SentPasswordReset bool `bson:"sentPasswordReset"`
	Rejected          bool `bson:"rejected"`
}

// SurveyResponseDocument は MongoDB 上での応募回答スキーマを Go 構造体として表現したもの。
// email は回答マッピング由来の相関キーで、検索用に非ユニークインデックスを張る。
type SurveyResponseDocument struct {
	ID        primitive.ObjectID     `bson:"_id"`
	Email     string                 `bson:"email"`
	Questions []QuestionDocument     `bson:"questions"`
	Status    ResponseStatusDocument `bson:"status"`
	CreatedAt time.Time              `bson:"createdAt"`
	UpdatedAt time.Time              `bson:"updatedAt"`
}

// mapResponseDocument は Mongo ドキュメントをドメインエンティティへ復元する。
func mapResponseDocument(doc SurveyResponseDocument) reviewdomain.SurveyResponse {
	questions := make(map[string]string, len(doc.Questions))
	for _, q := range doc.Questions {
		questions[q.Label] = q.Answer
	}
	return reviewdomain.SurveyResponse{
		ID:        doc.ID.Hex(),
		Email:     doc.Email,
		Questions: questions,
		Status: reviewdomain.ResponseStatus{
			AccountCreated:    doc.Status.AccountCreated,
			SentPasswordReset: doc.Status.SentPasswordReset,
			Rejected:          doc.Status.Rejected,
		},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// mapResponseToDocument はドメインエンティティを保存用ドキュメントへ変換する。ID は呼び出し側で設定する。
func mapResponseToDocument(response *reviewdomain.SurveyResponse) SurveyResponseDocument {
	questions := make([]QuestionDocument, 0, len(response.Questions))
	for label, answer := range response.Questions {
		questions = append(questions, QuestionDocument{Label: label, Answer: answer})
	}
	return SurveyResponseDocument{
		Email:     response.Email,
		Questions: questions,
		Status: ResponseStatusDocument{
			AccountCreated:    response.Status.AccountCreated,
			SentPasswordReset: response.Status.SentPasswordReset,
			Rejected:          response.Status.Rejected,
		},
		CreatedAt: response.CreatedAt,
		UpdatedAt: response.UpdatedAt,
	}
}
