// seed はローカル開発用に応募回答レコードを投入するユーティリティ。
// 未解決・承認済み・却下済みの各状態を用意し、ダッシュボードの動作確認に使う。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedOptions struct {
	mongoURI       string
	database       string
	collection     string
	dropCollection bool
}

type questionDocument struct {
	Label  string `bson:"label"`
	Answer string `bson:"answer"`
}

type responseStatusDocument struct {
	AccountCreated    bool `bson:"accountCreated"`
	SentPasswordReset bool `bson:"sentPasswordReset"`
	Rejected          bool `bson:"rejected"`
}

type surveyResponseDocument struct {
	ID        primitive.ObjectID     `bson:"_id"`
	Email     string                 `bson:"email"`
	Questions []questionDocument     `bson:"questions"`
	Status    responseStatusDocument `bson:"status"`
	CreatedAt time.Time              `bson:"createdAt"`
	UpdatedAt time.Time              `bson:"updatedAt"`
}

func main() {
	opts := parseFlags()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.mongoURI))
	if err != nil {
		log.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("MongoDB 切断時にエラー: %v", err)
		}
	}()

	collection := client.Database(opts.database).Collection(opts.collection)

	if opts.dropCollection {
		if err := collection.Drop(ctx); err != nil {
			log.Fatalf("コレクションの削除に失敗しました: %v", err)
		}
		log.Printf("コレクション %s を削除しました", opts.collection)
	}

	docs := sampleResponses()
	inserted := 0
	for _, doc := range docs {
		count, err := collection.CountDocuments(ctx, bson.M{"email": doc.Email})
		if err != nil {
			log.Fatalf("既存レコードの確認に失敗しました email=%s: %v", doc.Email, err)
		}
		if count > 0 {
			continue
		}
		if _, err := collection.InsertOne(ctx, doc); err != nil {
			log.Fatalf("レコードの投入に失敗しました email=%s: %v", doc.Email, err)
		}
		inserted++
	}

	fmt.Printf("seed 完了: %d 件投入 (%d 件は既存のためスキップ)\n", inserted, len(docs)-inserted)
}

func parseFlags() seedOptions {
	opts := seedOptions{}
	flag.StringVar(&opts.mongoURI, "mongo-uri", envOrDefault("MONGO_URI", "mongodb://localhost:27017"), "MongoDB 接続 URI")
	flag.StringVar(&opts.database, "db", envOrDefault("MONGO_DB", "surveygizmo-dashboard"), "データベース名")
	flag.StringVar(&opts.collection, "collection", envOrDefault("RESPONSE_COLLECTION", "survey_responses"), "応募回答コレクション名")
	flag.BoolVar(&opts.dropCollection, "reset", false, "投入前にコレクションを削除する")
	flag.Parse()
	return opts
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// sampleResponses は 3 状態ぶんの応募回答を返す。
func sampleResponses() []surveyResponseDocument {
	now := time.Now().UTC()

	build := func(email, name, business string, status responseStatusDocument, age time.Duration) surveyResponseDocument {
		return surveyResponseDocument{
			ID:    primitive.NewObjectID(),
			Email: email,
			Questions: []questionDocument{
				{Label: "Submitter Email", Answer: email},
				{Label: "Name", Answer: name},
				{Label: "Business Name", Answer: business},
				{Label: "Why do you want to become an affiliate?", Answer: "To bring FastTrac courses to my community."},
			},
			Status:    status,
			CreatedAt: now.Add(-age),
			UpdatedAt: now.Add(-age),
		}
	}

	return []surveyResponseDocument{
		build("pending@example.com", "Pat Pending", "Pending Ventures LLC", responseStatusDocument{}, 72*time.Hour),
		build("approved@example.com", "Alex Approved", "Approved Consulting", responseStatusDocument{AccountCreated: true, SentPasswordReset: true}, 48*time.Hour),
		build("rejected@example.com", "Riley Rejected", "Rejected Industries", responseStatusDocument{Rejected: true}, 24*time.Hour),
		// 部分実行で止まった状態。承認をリトライすると続きから完走する
		build("partial@example.com", "Perry Partial", "Partial Works", responseStatusDocument{AccountCreated: true}, 12*time.Hour),
	}
}
