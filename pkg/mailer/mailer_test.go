package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fleet@example.com", body["from"])
		assert.Equal(t, "Absence approved", body["subject"])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "key", "fleet@example.com", time.Second, nil)
	err := client.Send(context.Background(), Message{To: []string{"driver@example.com"}, Subject: "Absence approved", Text: "ok"})
	require.NoError(t, err)
}

func TestClientSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL, "key", "fleet@example.com", time.Second, nil)
	err := client.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClientSendRequiresRecipient(t *testing.T) {
	require.Error(t, New("http://mail", "k", "f", time.Second, nil).Send(context.Background(), Message{}))
	require.NoError(t, Noop{}.Send(context.Background(), Message{}))
}
