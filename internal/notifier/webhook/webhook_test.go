package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}

func TestDeliverPostsJSONPayload(t *testing.T) {
	t.Parallel()

	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, n.Deliver(context.Background(), "form is open"))
	require.Equal(t, "form is open", got.Text)
}

func TestDeliverNon2xxFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	err = n.Deliver(context.Background(), "form is open")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestDeliverTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close()

	n, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	require.Error(t, n.Deliver(context.Background(), "form is open"))
}
