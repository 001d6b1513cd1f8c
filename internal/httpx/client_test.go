package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, 404, StatusCode(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTransient(err))
}

func TestTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		code int
		want bool
	}{
		{name: "rate limited", code: 429, want: true},
		{name: "server error", code: 503, want: true},
		{name: "forbidden", code: 403, want: false},
		{name: "not found", code: 404, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := error(&StatusError{Code: tt.code, URL: "http://x"})
			assert.Equal(t, tt.want, IsTransient(err))
		})
	}
}

func TestGetJSONMergesParams(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.GetJSON(context.Background(), srv.URL+"?locale=en-us", url.Values{"type": {"modules"}}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "en-us", gotQuery.Get("locale"))
	assert.Equal(t, "modules", gotQuery.Get("type"))
}

func TestDownloadBytesSendsReferer(t *testing.T) {
	var referer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	data, err := c.DownloadBytes(context.Background(), srv.URL+"/img.png", "https://example.com/unit")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "https://example.com/unit", referer)
}
