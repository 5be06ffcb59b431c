package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExport(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, HealthPath, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, New(server.URL, "").Healthcheck(context.Background()))
}

func TestHealthcheck_ServerDown(t *testing.T) {
	err := New("http://127.0.0.1:1", "").Healthcheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector unreachable")
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := New(server.URL, "").Healthcheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestUploadSession_Success(t *testing.T) {
	var (
		meta    map[string]any
		key     string
		content []byte
		name    string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		key = r.Header.Get(KeyHeader)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.NoError(t, json.Unmarshal([]byte(r.MultipartForm.Value["metadata"][0]), &meta))

		f, hdr, err := r.FormFile("export")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		name = hdr.Filename
		content, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	path := writeExport(t, "transitions_20260301_120000_s1.json", `{"sessionId":"s1"}`)
	err := New(server.URL, "key").UploadSession(context.Background(), Session{
		ID:       "s1",
		Source:   "script.json",
		Markers:  4,
		Duration: 1500 * time.Millisecond,
		Export:   path,
	})
	require.NoError(t, err)

	assert.Equal(t, "key", key)
	assert.Equal(t, "s1", meta["sessionId"])
	assert.Equal(t, "script.json", meta["source"])
	assert.Equal(t, 4.0, meta["markers"])
	assert.Equal(t, 1500.0, meta["durationMs"])
	assert.Equal(t, "identity", meta["encoding"])
	assert.Equal(t, filepath.Base(path), meta["filename"])
	assert.Equal(t, filepath.Base(path), name)
	assert.Equal(t, `{"sessionId":"s1"}`, string(content))
}

func TestUploadSession_GzipEncoding(t *testing.T) {
	var meta map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(KeyHeader))
		if assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			assert.NoError(t, json.Unmarshal([]byte(r.MultipartForm.Value["metadata"][0]), &meta))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := writeExport(t, "s.json.gz", "not really gzip")
	require.NoError(t, New(server.URL, "").UploadSession(context.Background(), Session{ID: "s", Export: path}))
	assert.Equal(t, "gzip", meta["encoding"])
}

func TestUploadSession_Validation(t *testing.T) {
	c := New("http://127.0.0.1:1", "")

	assert.ErrorIs(t, c.UploadSession(context.Background(), Session{Export: "x.json"}), ErrNoSessionID)
	assert.ErrorIs(t, c.UploadSession(context.Background(), Session{ID: "s"}), ErrNoExport)
}

func TestUploadSession_MissingFile(t *testing.T) {
	err := New("http://127.0.0.1:1", "").UploadSession(context.Background(), Session{
		ID:     "s",
		Export: filepath.Join(t.TempDir(), "nope.json"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening export of session s")
}

func TestUploadSession_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "bad key\n")
	}))
	defer server.Close()

	path := writeExport(t, "s.json", `{}`)
	err := New(server.URL, "bad").UploadSession(context.Background(), Session{ID: "s", Export: path})
	require.Error(t, err)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "s", rejected.SessionID)
	assert.Equal(t, http.StatusUnauthorized, rejected.StatusCode)
	assert.Equal(t, "bad key", rejected.Body)
	assert.Contains(t, err.Error(), "status 401: bad key")
}
