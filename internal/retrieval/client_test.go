package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/query", r.URL.Path)

		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "network security", req.Text)
		assert.Equal(t, 3, req.Limit)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"snippets": [
			{"text": "Firewalls filter traffic.", "source": "security-101.md"},
			{"text": "TLS encrypts transport.", "source": "crypto.md"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	snippets, err := c.Query(context.Background(), "network security", 3)

	require.NoError(t, err)
	require.Len(t, snippets, 2)
	assert.Equal(t, "security-101.md", snippets[0].Source)
}

func TestQuery_TruncatesToLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"snippets": [
			{"text": "a", "source": "1"}, {"text": "b", "source": "2"}, {"text": "c", "source": "3"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	snippets, err := c.Query(context.Background(), "x", 2)

	require.NoError(t, err)
	assert.Len(t, snippets, 2)
}

func TestQuery_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Query(context.Background(), "x", 2)
	require.Error(t, err)
}
