package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPostsQueryAndBoundsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hackathon", body["q"])
		assert.Equal(t, 2.0, body["num"])
		_, _ = w.Write([]byte(`{"organic":[{"link":"https://a.example"},{"title":"no link"},{"link":"https://b.example"},{"link":"https://c.example"}]}`))
	}))
	defer srv.Close()

	s := Search{ApiKey: "key", Endpoint: srv.URL, Client: srv.Client()}
	got, err := s.Search(context.Background(), "hackathon", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, got)
}

func TestSearchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := Search{ApiKey: "key", Endpoint: srv.URL}
	_, err := s.Search(context.Background(), "hackathon", 8)
	assert.Error(t, err)
}
