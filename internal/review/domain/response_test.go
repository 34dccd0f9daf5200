package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolved(t *testing.T) {
	cases := []struct {
		name     string
		status   ResponseStatus
		expected bool
	}{
		{"new record", ResponseStatus{}, false},
		{"account only", ResponseStatus{AccountCreated: true}, false},
		{"reset only", ResponseStatus{SentPasswordReset: true}, false},
		{"approved", ResponseStatus{AccountCreated: true, SentPasswordReset: true}, true},
		{"rejected", ResponseStatus{Rejected: true}, true},
		{"rejected and partially approved", ResponseStatus{Rejected: true, AccountCreated: true}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			response := SurveyResponse{Status: tc.status}
			assert.Equal(t, tc.expected, response.Resolved())
		})
	}
}

func TestSubmitterEmail(t *testing.T) {
	response := NewSurveyResponse()
	assert.Empty(t, response.SubmitterEmail())

	response.Questions = map[string]string{"Submitter Email": "a@x.com", "Name": "Ann"}
	assert.Equal(t, "a@x.com", response.SubmitterEmail())
}

func TestUserDataErrorMessage(t *testing.T) {
	err := NewUserDataError("missing submitter email")
	assert.Equal(t, "missing submitter email", err.Error())
}
