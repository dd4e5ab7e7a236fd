package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/formwatch/formwatch/internal/watch"
)

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "formwatch-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<form>Submit</form>"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "formwatch-test/1.0", Timeout: 5 * time.Second})
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, []byte("<form>Submit</form>"), res.Body)
	require.Positive(t, res.Duration)
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL)

	var fetchErr *watch.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Contains(t, fetchErr.Error(), "404")
}

func TestFetchUnreachableHostIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	f := New(Config{Timeout: 2 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL)

	var fetchErr *watch.FetchError
	require.ErrorAs(t, err, &fetchErr)
}
