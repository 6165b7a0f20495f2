package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedPath(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/owner/model/resolve/main/tokenizer.json":
			w.Write([]byte(`{"model":{}}`))
		case "/datasets/owner/data/resolve/main/train.jsonl":
			w.Write([]byte(`{"text":"a"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	orig := Endpoint
	Endpoint = server.URL
	t.Cleanup(func() { Endpoint = orig })

	t.Run("downloads once then serves from cache", func(t *testing.T) {
		cacheDir := t.TempDir()

		path, err := CachedPath(context.Background(), "owner/model", "tokenizer.json", cacheDir)
		require.NoError(t, err)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"model":{}}`, string(content))

		before := hits.Load()
		again, err := CachedPath(context.Background(), "owner/model", "tokenizer.json", cacheDir)
		require.NoError(t, err)
		assert.Equal(t, path, again)
		assert.Equal(t, before, hits.Load(), "second resolve must not re-download")
	})

	t.Run("dataset namespace", func(t *testing.T) {
		path, err := DatasetPath(context.Background(), "owner/data", "train.jsonl", t.TempDir())
		require.NoError(t, err)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"text":"a"}`, string(content))
	})

	t.Run("missing remote file is ErrNotFound", func(t *testing.T) {
		_, err := CachedPath(context.Background(), "owner/unknown", "tokenizer.json", t.TempDir())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("server errors are not ErrNotFound", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer failing.Close()
		Endpoint = failing.URL
		defer func() { Endpoint = server.URL }()

		_, err := CachedPath(context.Background(), "owner/model", "tokenizer.json", t.TempDir())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "bad status")
	})

	t.Run("local file is returned as-is", func(t *testing.T) {
		local := filepath.Join(t.TempDir(), "tokenizer.json")
		require.NoError(t, os.WriteFile(local, []byte("{}"), 0o644))

		path, err := CachedPath(context.Background(), local, "tokenizer.json", "")
		require.NoError(t, err)
		assert.Equal(t, local, path)
	})

	t.Run("local directory joins the filename", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer.json"), []byte("{}"), 0o644))

		path, err := CachedPath(context.Background(), dir, "tokenizer.json", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "tokenizer.json"), path)
	})

	t.Run("absolute path that does not exist is local-only", func(t *testing.T) {
		before := hits.Load()
		_, err := CachedPath(context.Background(), filepath.Join(t.TempDir(), "nope.json"), "tokenizer.json", "")
		require.Error(t, err)
		assert.Equal(t, before, hits.Load(), "path-like identifiers must never hit the hub")
	})
}

func TestDownloadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files/data.jsonl" {
			w.Write([]byte(`{"text":"x"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	path, err := DownloadURL(context.Background(), server.URL+"/files/data.jsonl", t.TempDir())
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"x"}`, string(content))

	_, err = DownloadURL(context.Background(), "://not-a-url", t.TempDir())
	require.Error(t, err)
}
