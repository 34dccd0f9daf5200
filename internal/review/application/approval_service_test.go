package application

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"testing"

	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records map[string]*reviewdomain.SurveyResponse
	nextID  int
	calls   []string

	findErr           error
	setDataErr        error
	accountCreatedErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*reviewdomain.SurveyResponse{}, nextID: 1}
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (*reviewdomain.SurveyResponse, error) {
	s.calls = append(s.calls, "FindByEmail")
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.records[email], nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*reviewdomain.SurveyResponse, error) {
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) Find(_ context.Context, _ ResponseFilter, _ Paging) ([]reviewdomain.SurveyResponse, error) {
	result := make([]reviewdomain.SurveyResponse, 0, len(s.records))
	for _, record := range s.records {
		result = append(result, *record)
	}
	return result, nil
}

func (s *fakeStore) save(response *reviewdomain.SurveyResponse) {
	if response.ID == "" {
		response.ID = strconv.Itoa(s.nextID)
		s.nextID++
	}
	s.records[response.Email] = response
}

func (s *fakeStore) SetData(_ context.Context, response *reviewdomain.SurveyResponse, questions map[string]string) error {
	s.calls = append(s.calls, "SetData")
	if s.setDataErr != nil {
		return s.setDataErr
	}
	copied := make(map[string]string, len(questions))
	for label, answer := range questions {
		copied[label] = answer
	}
	response.Questions = copied
	s.save(response)
	return nil
}

func (s *fakeStore) SetAccountCreated(_ context.Context, response *reviewdomain.SurveyResponse) error {
	s.calls = append(s.calls, "SetAccountCreated")
	if s.accountCreatedErr != nil {
		return s.accountCreatedErr
	}
	response.Status.AccountCreated = true
	s.save(response)
	return nil
}

func (s *fakeStore) SetSentPasswordReset(_ context.Context, response *reviewdomain.SurveyResponse) error {
	s.calls = append(s.calls, "SetSentPasswordReset")
	response.Status.SentPasswordReset = true
	s.save(response)
	return nil
}

func (s *fakeStore) SetRejected(_ context.Context, response *reviewdomain.SurveyResponse) error {
	s.calls = append(s.calls, "SetRejected")
	response.Status.Rejected = true
	s.save(response)
	return nil
}

type fakeSource struct {
	data map[string]map[string]string
	err  error
}

func (s *fakeSource) ResponseData(_ context.Context, responseID string) (ResponseData, error) {
	if s.err != nil {
		return ResponseData{}, s.err
	}
	questions, ok := s.data[responseID]
	if !ok {
		return ResponseData{}, errors.New("unknown response id")
	}
	return ResponseData{Questions: questions}, nil
}

type fakeIdentity struct {
	createCalls []string
	createErr   error
	resetCalls  []string
	resetErr    error
	resetLink   string
}

func (f *fakeIdentity) CreateUser(_ context.Context, email, password string) error {
	f.createCalls = append(f.createCalls, email+":"+password)
	return f.createErr
}

func (f *fakeIdentity) ResetPasswordLink(_ context.Context, email string) (string, error) {
	f.resetCalls = append(f.resetCalls, email)
	if f.resetErr != nil {
		return "", f.resetErr
	}
	return f.resetLink, nil
}

type fakePlatform struct {
	calls         []map[string]string
	tokens        []string
	err           error
	mailsAtInvoke []int
	mailer        *fakeMailer
}

func (f *fakePlatform) CreateAffiliateEntity(_ context.Context, accessToken string, questions map[string]string) error {
	f.calls = append(f.calls, questions)
	f.tokens = append(f.tokens, accessToken)
	if f.mailer != nil {
		f.mailsAtInvoke = append(f.mailsAtInvoke, len(f.mailer.sent))
	}
	return f.err
}

type fakeMailer struct {
	sent    []Mail
	failOn  string
	failErr error
}

func (f *fakeMailer) Send(_ context.Context, mail Mail) error {
	if f.failOn != "" && mail.Subject == f.failOn {
		return f.failErr
	}
	f.sent = append(f.sent, mail)
	return nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func approvalFixture() (*fakeStore, *fakeSource, *fakeIdentity, *fakePlatform, *fakeMailer, ApprovalService) {
	store := newFakeStore()
	source := &fakeSource{data: map[string]map[string]string{
		"42": {"Submitter Email": "a@x.com", "Name": "Ann"},
		"7":  {"Name": "No Email"},
	}}
	identity := &fakeIdentity{resetLink: "https://auth.example.com/reset/abc"}
	mailer := &fakeMailer{}
	platform := &fakePlatform{mailer: mailer}
	service := NewApprovalService(discardLogger(), store, source, identity, platform, mailer)
	return store, source, identity, platform, mailer, service
}

func TestApproveProvisionsAccountAndNotifies(t *testing.T) {
	_, _, identity, platform, mailer, service := approvalFixture()
	ctx := context.Background()

	record, err := service.Approve(ctx, "42", "Welcome aboard!", "caller-token")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "a@x.com", record.Email)
	assert.True(t, record.Status.AccountCreated)
	assert.True(t, record.Status.SentPasswordReset)
	assert.False(t, record.Status.Rejected)
	assert.NotEmpty(t, record.ID)

	require.Equal(t, []string{"a@x.com:passverd"}, identity.createCalls)
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "a@x.com", mailer.sent[0].To)
	assert.Equal(t, "Password reset link for Kauffman FastTrac account", mailer.sent[0].Subject)
	assert.Equal(t, "Please reset your Kauffman FastTrac account by clicking the link: https://auth.example.com/reset/abc", mailer.sent[0].Text)
	assert.Equal(t, mailer.sent[0].Text, mailer.sent[0].HTML)
	assert.Equal(t, "a@x.com", mailer.sent[1].To)
	assert.Equal(t, "Kauffman FastTrac Affiliate Approval", mailer.sent[1].Subject)
	assert.Equal(t, "Welcome aboard!", mailer.sent[1].Text)

	require.Len(t, platform.calls, 1)
	assert.Equal(t, []string{"caller-token"}, platform.tokens)
	assert.Equal(t, "Ann", platform.calls[0]["Name"])
}

func TestApproveSecondCallShortCircuits(t *testing.T) {
	_, _, identity, platform, mailer, service := approvalFixture()
	ctx := context.Background()

	first, err := service.Approve(ctx, "42", "Welcome!", "token")
	require.NoError(t, err)

	second, err := service.Approve(ctx, "42", "Welcome again!", "token")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, identity.createCalls, 1)
	assert.Len(t, identity.resetCalls, 1)
	assert.Len(t, mailer.sent, 2)
	assert.Len(t, platform.calls, 1)
}

func TestApproveResolvedRecordReturnsUnchanged(t *testing.T) {
	store, _, identity, platform, mailer, service := approvalFixture()
	existing := &reviewdomain.SurveyResponse{
		ID:        "9",
		Email:     "a@x.com",
		Questions: map[string]string{"Submitter Email": "a@x.com"},
		Status:    reviewdomain.ResponseStatus{Rejected: true},
	}
	store.records["a@x.com"] = existing

	record, err := service.Approve(context.Background(), "42", "Welcome!", "token")
	require.NoError(t, err)

	assert.Same(t, existing, record)
	assert.Empty(t, identity.createCalls)
	assert.Empty(t, identity.resetCalls)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, platform.calls)
}

func TestApproveMissingSubmitterEmailIsUserDataError(t *testing.T) {
	_, _, _, platform, mailer, service := approvalFixture()

	record, err := service.Approve(context.Background(), "7", "Welcome!", "token")
	require.Error(t, err)
	assert.Nil(t, record)

	var userErr *reviewdomain.UserDataError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Message, "Submitter Email")
	assert.Empty(t, mailer.sent)
	assert.Empty(t, platform.calls)
}

func TestApproveProvisioningFailureIsNonFatal(t *testing.T) {
	_, _, identity, platform, mailer, service := approvalFixture()
	identity.createErr = errors.New("user already exists")

	record, err := service.Approve(context.Background(), "42", "Welcome!", "token")
	require.NoError(t, err)

	assert.False(t, record.Status.AccountCreated)
	assert.True(t, record.Status.SentPasswordReset)
	assert.Len(t, mailer.sent, 2)
	assert.Len(t, platform.calls, 1)
}

func TestApproveAccountFlagPersistFailureIsNonFatal(t *testing.T) {
	store, _, _, _, mailer, service := approvalFixture()
	store.accountCreatedErr = errors.New("write concern error")

	record, err := service.Approve(context.Background(), "42", "Welcome!", "token")
	require.NoError(t, err)

	assert.False(t, record.Status.AccountCreated)
	assert.True(t, record.Status.SentPasswordReset)
	assert.Len(t, mailer.sent, 2)
}

func TestApprovePlatformCallHappensAfterBothEmails(t *testing.T) {
	_, _, _, platform, _, service := approvalFixture()

	_, err := service.Approve(context.Background(), "42", "Welcome!", "token")
	require.NoError(t, err)

	require.Len(t, platform.mailsAtInvoke, 1)
	assert.Equal(t, 2, platform.mailsAtInvoke[0])
}

func TestApprovePlatformFailurePropagates(t *testing.T) {
	_, _, _, platform, mailer, service := approvalFixture()
	platform.err = errors.New("edx unreachable")

	record, err := service.Approve(context.Background(), "42", "Welcome!", "token")
	require.Error(t, err)
	assert.Nil(t, record)

	var userErr *reviewdomain.UserDataError
	assert.False(t, errors.As(err, &userErr))
	// 応募者向けメールはプラットフォーム連携より前に送信済み
	assert.Len(t, mailer.sent, 2)
}

func TestApproveResetMailFailurePropagates(t *testing.T) {
	store, _, _, platform, mailer, service := approvalFixture()
	mailer.failOn = "Password reset link for Kauffman FastTrac account"
	mailer.failErr = errors.New("gateway down")

	record, err := service.Approve(context.Background(), "42", "Welcome!", "token")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Empty(t, platform.calls)

	// データ保存までは進んでいるため、リトライ時はアカウント作成済みから再開できる
	persisted := store.records["a@x.com"]
	require.NotNil(t, persisted)
	assert.True(t, persisted.Status.AccountCreated)
	assert.False(t, persisted.Status.SentPasswordReset)
}

func TestApproveFetchFailurePropagates(t *testing.T) {
	_, source, _, _, mailer, service := approvalFixture()
	source.err = errors.New("surveygizmo timeout")

	record, err := service.Approve(context.Background(), "42", "Welcome!", "token")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Empty(t, mailer.sent)
}
