package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MiroDojkic/surveygizmo-dashboard/internal/review/application"
	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResponseRepository は応募回答を MongoDB 経由で扱うリポジトリ。
// application.ResponseStore を実装し、各ミューテータはフラグ設定と保存を一括で行う。
type ResponseRepository struct {
	responses *mongo.Collection
}

// NewResponseRepository は応募回答コレクションを束縛したリポジトリを生成する。
func NewResponseRepository(db *mongo.Database, responseCollection string) *ResponseRepository {
	return &ResponseRepository{responses: db.Collection(responseCollection)}
}

// EnsureIndexes は相関メールアドレスの検索用インデックスを作成する。起動時に一度呼ぶ。
// email にユニーク制約は課さない。相関キーは事実上の自然キーであってスキーマ上の制約ではない。
func (r *ResponseRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.responses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	return err
}

// FindByEmail は相関メールアドレスで単一レコードを検索する。該当なしは (nil, nil)。
func (r *ResponseRepository) FindByEmail(ctx context.Context, email string) (*reviewdomain.SurveyResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	var doc SurveyResponseDocument
	err := r.responses.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	response := mapResponseDocument(doc)
	return &response, nil
}

// FindByID はレコード ID を ObjectID 化して単一エンティティを復元する。
func (r *ResponseRepository) FindByID(ctx context.Context, id string) (*reviewdomain.SurveyResponse, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	var doc SurveyResponseDocument
	if err := r.responses.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		return nil, err
	}
	response := mapResponseDocument(doc)
	return &response, nil
}

// Find はダッシュボード一覧用の検索。新しい順に返す。
func (r *ResponseRepository) Find(ctx context.Context, filter application.ResponseFilter, paging application.Paging) ([]reviewdomain.SurveyResponse, error) {
	mongoFilter := bson.M{}
	if email := strings.TrimSpace(filter.Email); email != "" {
		mongoFilter["email"] = email
	}
	if filter.Resolved != nil {
		resolvedCond := bson.A{
			bson.M{"status.rejected": true},
			bson.M{"status.accountCreated": true, "status.sentPasswordReset": true},
		}
		if *filter.Resolved {
			mongoFilter["$or"] = resolvedCond
		} else {
			mongoFilter["$nor"] = resolvedCond
		}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if paging.Limit > 0 {
		findOpts.SetLimit(int64(paging.Limit))
		if paging.Page > 1 {
			findOpts.SetSkip(int64((paging.Page - 1) * paging.Limit))
		}
	}

	cursor, err := r.responses.Find(ctx, mongoFilter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	responses := make([]reviewdomain.SurveyResponse, 0)
	for cursor.Next(ctx) {
		var doc SurveyResponseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		responses = append(responses, mapResponseDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

// SetData は回答マッピングを丸ごと差し替えて保存する。マージはしない。最新の取得結果が常に勝つ。
func (r *ResponseRepository) SetData(ctx context.Context, response *reviewdomain.SurveyResponse, questions map[string]string) error {
	copied := make(map[string]string, len(questions))
	for label, answer := range questions {
		copied[label] = answer
	}
	response.Questions = copied
	return r.save(ctx, response)
}

// SetAccountCreated はアカウント作成済みフラグを立てて保存する。
func (r *ResponseRepository) SetAccountCreated(ctx context.Context, response *reviewdomain.SurveyResponse) error {
	response.Status.AccountCreated = true
	return r.save(ctx, response)
}

// SetSentPasswordReset はリセットメール送信済みフラグを立てて保存する。
func (r *ResponseRepository) SetSentPasswordReset(ctx context.Context, response *reviewdomain.SurveyResponse) error {
	response.Status.SentPasswordReset = true
	return r.save(ctx, response)
}

// SetRejected は却下フラグを立てて保存する。
func (r *ResponseRepository) SetRejected(ctx context.Context, response *reviewdomain.SurveyResponse) error {
	response.Status.Rejected = true
	return r.save(ctx, response)
}

// save はエンティティの現在状態をドキュメントへ反映する。
// 未保存 (ID 空) なら挿入して採番し、保存済みなら全置換で更新する。
func (r *ResponseRepository) save(ctx context.Context, response *reviewdomain.SurveyResponse) error {
	now := time.Now().UTC()
	response.UpdatedAt = now

	if response.ID == "" {
		response.CreatedAt = now
		doc := mapResponseToDocument(response)
		doc.ID = primitive.NewObjectID()
		if _, err := r.responses.InsertOne(ctx, doc); err != nil {
			return err
		}
		response.ID = doc.ID.Hex()
		return nil
	}

	objectID, err := primitive.ObjectIDFromHex(response.ID)
	if err != nil {
		return err
	}
	doc := mapResponseToDocument(response)
	doc.ID = objectID
	_, err = r.responses.ReplaceOne(ctx, bson.M{"_id": objectID}, doc)
	return err
}
