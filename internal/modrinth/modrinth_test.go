package modrinth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empack/internal/httpx"
)

func withServer(t *testing.T, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	httpx.RoundTripper = http.DefaultTransport
	t.Cleanup(func() { httpx.RoundTripper = nil })
	return &Client{baseURL: srv.URL}
}

func TestSearchParsesHits(t *testing.T) {
	c := withServer(t, `{"hits":[{"project_id":"P1","slug":"citadel","title":"Citadel","downloads":5000000,"categories":["neoforge"],"versions":["1.21.1"]}],"total_hits":1}`)
	result, err := c.Search(context.Background(), "Citadel", "mod", "1.21.1", "neoforge", 10)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Citadel", result.Hits[0].Title)
	assert.Equal(t, 5000000, result.Hits[0].Downloads)
}

func TestFacetsOmitsVanillaLoader(t *testing.T) {
	f := facets("mod", "1.21.1", "vanilla")
	assert.NotContains(t, f, "categories:vanilla")
	assert.Contains(t, f, "versions:1.21.1")
}

func TestGetVersionsParsesList(t *testing.T) {
	c := withServer(t, `[{"id":"v1","version_number":"1.0.0","game_versions":["1.21.1"],"loaders":["neoforge"]}]`)
	versions, err := c.GetVersions(context.Background(), "P1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].ID)
}
