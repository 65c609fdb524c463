// Package modrinth is the Project Resolver's first-priority platform
// client (spec.md §4.7: "Query Modrinth first"). Field shapes are grounded
// on the Modrinth adapter retrieved for this spec (a ModpackIndexer
// implementation over the same /v2 search + project + version endpoints),
// narrowed to what empack's resolver actually consumes.
package modrinth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"empack/internal/httpx"
)

const baseURL = "https://api.modrinth.com/v2"

// Project is one search-result hit.
type Project struct {
	ProjectID  string `json:"project_id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Downloads  int    `json:"downloads"`
	Categories []string `json:"categories"`
	Versions   []string `json:"versions"`
}

// SearchResult is the /search envelope.
type SearchResult struct {
	Hits      []Project `json:"hits"`
	TotalHits int       `json:"total_hits"`
}

// Client issues requests against the Modrinth v2 API.
type Client struct {
	baseURL string
}

func NewClient() *Client {
	return &Client{baseURL: baseURL}
}

// NewClientWithBaseURL builds a Client pointed at a custom endpoint, used by
// tests to substitute an httptest server.
func NewClientWithBaseURL(base string) *Client {
	return &Client{baseURL: base}
}

// facets builds Modrinth's nested-array facet query syntax:
// [["project_type:mod"],["versions:1.21.1"],["categories:neoforge"]].
func facets(projectType, mcVersion, modloader string) string {
	var groups []string
	if projectType != "" {
		groups = append(groups, fmt.Sprintf(`["project_type:%s"]`, projectType))
	}
	if mcVersion != "" {
		groups = append(groups, fmt.Sprintf(`["versions:%s"]`, mcVersion))
	}
	if modloader != "" && modloader != "vanilla" {
		groups = append(groups, fmt.Sprintf(`["categories:%s"]`, modloader))
	}
	return "[" + strings.Join(groups, ",") + "]"
}

// Search performs a free-text + faceted search, returning the raw hit list
// (the Project Resolver applies confidence scoring on top).
func (c *Client) Search(ctx context.Context, query, projectType, mcVersion, modloader string, limit int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("facets", facets(projectType, mcVersion, modloader))
	q.Set("limit", strconv.Itoa(limit))

	resp, err := httpx.Get(ctx, c.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("modrinth search: %w", err)
	}
	defer resp.Body.Close()

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("modrinth search: decode: %w", err)
	}
	return &result, nil
}

// ProjectDetails is the full GET /project/{id} response, used to look up a
// required dependency's project when expanding dependencies.
type ProjectDetails struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Downloads int    `json:"downloads"`
}

func (c *Client) GetProject(ctx context.Context, idOrSlug string) (*ProjectDetails, error) {
	resp, err := httpx.Get(ctx, c.baseURL+"/project/"+url.PathEscape(idOrSlug))
	if err != nil {
		return nil, fmt.Errorf("modrinth project %s: %w", idOrSlug, err)
	}
	defer resp.Body.Close()

	var p ProjectDetails
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("modrinth project %s: decode: %w", idOrSlug, err)
	}
	return &p, nil
}

// Dependency is one entry of a Version's dependencies array: another
// project/version this one relies on, with DependencyType one of
// "required", "optional", "incompatible", "embedded" (spec.md §4
// "Dependency graph expansion for pinned/required mods" only follows
// "required" edges; "optional" ones are logged, not auto-added).
type Dependency struct {
	VersionID      string `json:"version_id"`
	ProjectID      string `json:"project_id"`
	DependencyType string `json:"dependency_type"`
}

// Version is a single published version of a project; ID is what gets
// recorded as a ProjectPinning target.
type Version struct {
	ID            string       `json:"id"`
	VersionNumber string       `json:"version_number"`
	GameVersions  []string     `json:"game_versions"`
	Loaders       []string     `json:"loaders"`
	Dependencies  []Dependency `json:"dependencies"`
}

func (c *Client) GetVersions(ctx context.Context, projectID string) ([]Version, error) {
	resp, err := httpx.Get(ctx, c.baseURL+"/project/"+url.PathEscape(projectID)+"/version")
	if err != nil {
		return nil, fmt.Errorf("modrinth versions %s: %w", projectID, err)
	}
	defer resp.Body.Close()

	var versions []Version
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, fmt.Errorf("modrinth versions %s: decode: %w", projectID, err)
	}
	return versions, nil
}

func (c *Client) GetVersion(ctx context.Context, versionID string) (*Version, error) {
	resp, err := httpx.Get(ctx, c.baseURL+"/version/"+url.PathEscape(versionID))
	if err != nil {
		return nil, fmt.Errorf("modrinth version %s: %w", versionID, err)
	}
	defer resp.Body.Close()

	var v Version
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("modrinth version %s: decode: %w", versionID, err)
	}
	return &v, nil
}
