package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.Write([]byte("pong"))
	}))
	defer srv.Close()

	RoundTripper = http.DefaultTransport
	defer func() { RoundTripper = nil }()

	resp, err := Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Contains(t, got, "empack/")
}

func TestReadStringTrimsWhitespace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  1.21.1\n"))
	}))
	defer srv.Close()

	RoundTripper = http.DefaultTransport
	defer func() { RoundTripper = nil }()

	s, err := ReadString(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "1.21.1", s)
}

func TestReadStringErrorsOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	RoundTripper = http.DefaultTransport
	defer func() { RoundTripper = nil }()

	_, err := ReadString(context.Background(), srv.URL)
	require.Error(t, err)
}
