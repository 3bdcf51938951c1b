package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotLang string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer ts.Close()

	html, err := New(5*time.Second).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", html)
	assert.Contains(t, gotUA, "Mozilla/5.0")
	assert.True(t, strings.HasPrefix(gotLang, "pt-BR"))
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "não achei", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := New(5*time.Second).Fetch(context.Background(), ts.URL)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, ts.URL, fe.URL)
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/destino", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chegou"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/destino", http.StatusMovedPermanently)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	html, err := New(5*time.Second).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "chegou", html)
}

func TestFetchTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("tarde demais"))
	}))
	defer ts.Close()

	_, err := New(50*time.Millisecond).Fetch(context.Background(), ts.URL)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.NotNil(t, fe.Err)
}
