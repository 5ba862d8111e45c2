package languages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchLanguages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/books/robot-basics/languages" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"availableLanguages": [
				{"code": "en", "name": "English", "formats": ["pdf", "print"]},
				{"code": "ro", "name": "Română", "formats": ["print"]},
				{"code": "", "name": "broken entry"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	langs, err := client.FetchLanguages(context.Background(), "robot-basics")
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, "en", langs[0].Code)
	assert.Equal(t, []string{"pdf", "print"}, langs[0].Formats)
	assert.Equal(t, "Română", langs[1].Name)
}

func TestClient_FetchLanguagesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	_, err := client.FetchLanguages(context.Background(), "missing-book")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_FetchLanguagesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	_, err := client.FetchLanguages(context.Background(), "robot-basics")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClient_EmptySlugRejected(t *testing.T) {
	client := NewClient("http://127.0.0.1:0")

	_, err := client.FetchLanguages(context.Background(), "")
	assert.ErrorIs(t, err, ErrSlugRequired)
}
