package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zongseung/energyrag/config"
)

func TestSlackSend(t *testing.T) {
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(config.SlackConfig{WebhookURL: srv.URL, Username: "report-collector"})
	require.NoError(t, s.Send(context.Background(), "[summary] new 1 / skipped 0"))

	assert.Equal(t, "[summary] new 1 / skipped 0", got.Text)
	assert.Equal(t, "report-collector", got.Username)
	assert.Equal(t, ":robot_face:", got.IconEmoji)
}

func TestSlackSendFailureSendsFallbackThenErrors(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m message
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &m)
		texts = append(texts, m.Text)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewSlack(config.SlackConfig{WebhookURL: srv.URL, Username: "report-collector"})
	err := s.Send(context.Background(), "summary")
	assert.ErrorContains(t, err, "slack webhook returned 400")

	// Original message plus exactly one fallback alert.
	require.Len(t, texts, 2)
	assert.Equal(t, "summary", texts[0])
	assert.Equal(t, "slack notification delivery failed", texts[1])
}
