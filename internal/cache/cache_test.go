package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogFetchMemoizes(t *testing.T) {
	c := NewCatalog()
	calls := 0
	fn := func() (interface{}, error) {
		calls++
		return "value", nil
	}

	v1, err := c.Fetch("mojang", fn)
	require.NoError(t, err)
	v2, err := c.Fetch("mojang", fn)
	require.NoError(t, err)

	assert.Equal(t, "value", v1)
	assert.Equal(t, "value", v2)
	assert.Equal(t, 1, calls)
}

func TestCatalogFetchIsolatesKeys(t *testing.T) {
	c := NewCatalog()
	_, _ = c.Fetch("a", func() (interface{}, error) { return 1, nil })
	_, _ = c.Fetch("b", func() (interface{}, error) { return 2, nil })
	v, _ := c.Fetch("a", func() (interface{}, error) { return 3, nil })
	assert.Equal(t, 1, v)
}

func TestResolutionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenResolution(filepath.Join(dir, ".empack.cache"))
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	err = r.Put(ctx, Entry{Label: "cit", Platform: "modrinth", ProjectID: "p123", ProjectName: "Citadel", Confidence: 0.95})
	require.NoError(t, err)

	got, found, err := r.Get(ctx, "cit")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Citadel", got.ProjectName)
}

func TestResolutionGetMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenResolution(filepath.Join(dir, ".empack.cache"))
	require.NoError(t, err)
	defer r.Close()

	_, found, err := r.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolutionForgetRemovesEntry(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenResolution(filepath.Join(dir, ".empack.cache"))
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Put(ctx, Entry{Label: "fae", Platform: "modrinth", ProjectID: "x", ProjectName: "Fresh Animations"}))
	require.NoError(t, r.Forget(ctx, "fae"))

	_, found, err := r.Get(ctx, "fae")
	require.NoError(t, err)
	assert.False(t, found)
}
