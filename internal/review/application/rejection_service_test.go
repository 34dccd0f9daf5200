package application

import (
	"context"
	"errors"
	"testing"

	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejectionFixture() (*fakeStore, *fakeSource, *fakeMailer, RejectionService) {
	store := newFakeStore()
	source := &fakeSource{data: map[string]map[string]string{
		"9": {"Submitter Email": "c@z.com", "Name": "Cam"},
	}}
	mailer := &fakeMailer{}
	service := NewRejectionService(discardLogger(), store, source, mailer)
	return store, source, mailer, service
}

func TestRejectPersistsUnderFetchedEmailButNotifiesRequestEmail(t *testing.T) {
	store, _, mailer, service := rejectionFixture()

	record, err := service.Reject(context.Background(), "9", "b@y.com", "Unfortunately...")
	require.NoError(t, err)

	// レコードは取得データの相関メールアドレスで保存される
	assert.Equal(t, "c@z.com", record.Email)
	assert.True(t, record.Status.Rejected)
	require.NotNil(t, store.records["c@z.com"])

	// 通知メールはリクエストボディの email 宛て
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "b@y.com", mailer.sent[0].To)
	assert.Equal(t, "FastTrac Application Rejected", mailer.sent[0].Subject)
	assert.Equal(t, "Unfortunately...", mailer.sent[0].Text)
}

func TestRejectReusesExistingRecord(t *testing.T) {
	store, _, _, service := rejectionFixture()
	existing := &reviewdomain.SurveyResponse{
		ID:        "5",
		Email:     "c@z.com",
		Questions: map[string]string{"Submitter Email": "c@z.com", "Old": "value"},
	}
	store.records["c@z.com"] = existing

	record, err := service.Reject(context.Background(), "9", "c@z.com", "No thanks")
	require.NoError(t, err)

	assert.Equal(t, "5", record.ID)
	assert.True(t, record.Status.Rejected)
	// 回答マッピングは丸ごと差し替え。旧データはマージされない
	assert.Equal(t, map[string]string{"Submitter Email": "c@z.com", "Name": "Cam"}, record.Questions)
}

func TestRejectHasNoIdempotencyGate(t *testing.T) {
	store, _, mailer, service := rejectionFixture()
	store.records["c@z.com"] = &reviewdomain.SurveyResponse{
		ID:     "5",
		Email:  "c@z.com",
		Status: reviewdomain.ResponseStatus{Rejected: true},
	}

	_, err := service.Reject(context.Background(), "9", "c@z.com", "Again")
	require.NoError(t, err)

	// 解決済みレコードでも却下パスは短絡しない。メールは再送される
	assert.Len(t, mailer.sent, 1)
}

func TestRejectMailFailurePropagates(t *testing.T) {
	store, _, mailer, service := rejectionFixture()
	mailer.failOn = "FastTrac Application Rejected"
	mailer.failErr = errors.New("gateway down")

	record, err := service.Reject(context.Background(), "9", "b@y.com", "Sorry")
	require.Error(t, err)
	assert.Nil(t, record)

	// 却下フラグの保存はメール送信より前に完了している
	persisted := store.records["c@z.com"]
	require.NotNil(t, persisted)
	assert.True(t, persisted.Status.Rejected)
}

func TestRejectFetchFailurePropagates(t *testing.T) {
	_, source, mailer, service := rejectionFixture()
	source.err = errors.New("surveygizmo timeout")

	record, err := service.Reject(context.Background(), "9", "b@y.com", "Sorry")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Empty(t, mailer.sent)
}
