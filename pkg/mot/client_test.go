package mot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "fleet", r.PostForm.Get("client_id"))
		atomic.AddInt32(tokenCalls, 1)
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})
	mux.HandleFunc("/vehicles/registration/AB12CDE", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"registration":"AB12CDE","make":"FORD","model":"TRANSIT","motTests":[
			{"completedDate":"2026-07-10T09:12:00.000Z","testResult":"PASSED","expiryDate":"2027-07-09","odometerValue":"61234","odometerUnit":"mi"},
			{"completedDate":"2025-07-08T10:00:00.000Z","testResult":"PASSED","expiryDate":"2026-07-14","odometerValue":"50120","odometerUnit":"mi"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestFetchHistoryCachesToken(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "key", TokenURL: srv.URL + "/token", ClientID: "fleet", ClientSecret: "s", Timeout: time.Second}, nil)
	require.True(t, client.Configured())

	for i := 0; i < 2; i++ {
		history, err := client.FetchHistory(context.Background(), "AB12CDE")
		require.NoError(t, err)
		require.Len(t, history.Tests, 2)
		require.NotNil(t, history.LatestExpiry())
		assert.Equal(t, "2027-07-09", history.LatestExpiry().Format("2006-01-02"))
		require.NotNil(t, history.LatestMileage())
		assert.Equal(t, 61234, *history.LatestMileage())
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls))
}

func TestLatestExpirySkipsFailedTests(t *testing.T) {
	failed := time.Date(2027, 8, 1, 0, 0, 0, 0, time.UTC)
	passed := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)
	history := &History{Tests: []Test{
		{Result: "FAILED", ExpiryDate: &failed},
		{Result: "PASSED", ExpiryDate: &passed},
	}}
	require.NotNil(t, history.LatestExpiry())
	assert.Equal(t, passed, *history.LatestExpiry())

	assert.Nil(t, (&History{Tests: []Test{{Result: "FAILED", ExpiryDate: &failed}}}).LatestExpiry())
}

func TestFetchHistoryNotFound(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "key", TokenURL: srv.URL + "/token", ClientID: "fleet", Timeout: time.Second}, nil)
	_, err := client.FetchHistory(context.Background(), "ZZ99ZZZ")
	require.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestLatestMileageConvertsKilometres(t *testing.T) {
	km := 16093
	history := &History{Tests: []Test{{Odometer: &km, OdometerUnit: "km"}}}
	require.NotNil(t, history.LatestMileage())
	assert.Equal(t, 9999, *history.LatestMileage())
}
