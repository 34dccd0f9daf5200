package surveygizmo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseDataFlattensSurveyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/survey/112233/surveyresponse/42", r.URL.Path)
		assert.Equal(t, "token", r.URL.Query().Get("api_token"))
		assert.Equal(t, "secret", r.URL.Query().Get("api_token_secret"))

		fmt.Fprint(w, `{
			"result_ok": true,
			"survey_data": {
				"2": {"question": "Submitter Email", "answer": "a@x.com"},
				"3": {"question": "Name", "answer": "Ann"},
				"4": {"question": "", "answer": "ignored"}
			}
		}`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, SurveyID: "112233", APIToken: "token", APISecret: "secret"})

	data, err := client.ResponseData(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Submitter Email": "a@x.com",
		"Name":            "Ann",
	}, data.Questions)
}

func TestResponseDataErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "response not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, SurveyID: "112233", APIToken: "token", APISecret: "secret"})

	_, err := client.ResponseData(context.Background(), "404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

func TestResponseDataResultNotOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"result_ok": false}`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, SurveyID: "112233", APIToken: "token", APISecret: "secret"})

	_, err := client.ResponseData(context.Background(), "42")
	require.Error(t, err)
}
