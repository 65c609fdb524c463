// Package curseforge is the Project Resolver's second-priority platform
// client (spec.md §4.7: "CurseForge second"), used when a Modrinth search
// falls below the confidence threshold. Grounded on the teacher's
// curseforge_file.go, which used gabs.Container for ad-hoc JSON traversal
// against the (now-retired) addons-ecs.forgesvc.net API; ported to the
// modern api.curseforge.com/v1 surface, keeping the same gabs-based
// traversal style since the shape is still a free-form nested document.
package curseforge

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/Jeffail/gabs"

	"empack/internal/errs"
	"empack/internal/httpx"
)

const baseURL = "https://api.curseforge.com/v1"

// APIKeyEnvVar is the environment variable holding the caller's CurseForge
// Core API key (spec.md §6: "requires EMPACK_KEY_CURSEFORGE").
const APIKeyEnvVar = "EMPACK_KEY_CURSEFORGE"

// Client issues requests against the CurseForge v1 API.
type Client struct {
	apiKey  string
	baseURL string
}

// NewClientFromEnv builds a Client using APIKeyEnvVar; returns an
// UpstreamUnavailable-kind error if unset, since every CurseForge call
// requires it.
func NewClientFromEnv() (*Client, error) {
	key := os.Getenv(APIKeyEnvVar)
	if key == "" {
		return nil, errs.New(errs.UpstreamUnavailable,
			"CurseForge API key not configured",
			APIKeyEnvVar+" is unset",
			"set "+APIKeyEnvVar+" to a CurseForge Core API key, or rely on Modrinth-only resolution")
	}
	return &Client{apiKey: key, baseURL: baseURL}, nil
}

func (c *Client) get(ctx context.Context, path string) (*gabs.Container, error) {
	resp, err := httpx.GetWithHeaders(ctx, c.baseURL+path, map[string]string{"x-api-key": c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("curseforge %s: %w", path, err)
	}
	defer resp.Body.Close()

	parsed, err := gabs.ParseJSONBuffer(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("curseforge %s: decode: %w", path, err)
	}
	return parsed, nil
}

// SearchHit is one result from GET /mods/search.
type SearchHit struct {
	ID          int
	Slug        string
	Name        string
	DownloadCount float64
}

// Search performs a free-text mod search scoped to a class id (spec.md
// §4.7: mod=6, resourcepack=12, datapack=17) and a Minecraft game version.
func (c *Client) Search(ctx context.Context, query string, classID int, gameVersion string) ([]SearchHit, error) {
	path := fmt.Sprintf("/mods/search?gameId=432&classId=%d&searchFilter=%s&gameVersion=%s&sortField=2&sortOrder=desc",
		classID, url.QueryEscape(query), url.QueryEscape(gameVersion))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	children, err := body.Path("data").Children()
	if err != nil {
		return nil, fmt.Errorf("curseforge search: malformed response: %w", err)
	}

	hits := make([]SearchHit, 0, len(children))
	for _, mod := range children {
		id, _ := mod.Path("id").Data().(float64)
		slug, _ := mod.Path("slug").Data().(string)
		name, _ := mod.Path("name").Data().(string)
		downloads, _ := mod.Path("downloadCount").Data().(float64)
		hits = append(hits, SearchHit{ID: int(id), Slug: slug, Name: name, DownloadCount: downloads})
	}
	return hits, nil
}

// LatestFileID returns the newest file ID for modID matching gameVersion,
// adapted from the teacher's getLatestFile (gameVersionLatestFiles scan,
// preferring release over beta/alpha file types).
func (c *Client) LatestFileID(ctx context.Context, modID int, gameVersion string) (int, error) {
	body, err := c.get(ctx, fmt.Sprintf("/mods/%d", modID))
	if err != nil {
		return 0, err
	}

	files, err := body.Path("data.latestFilesIndexes").Children()
	if err != nil {
		return 0, fmt.Errorf("curseforge mod %d: malformed response: %w", modID, err)
	}

	const maxFileType = 1 << 30
	selectedType := maxFileType
	selectedFileID := 0
	for _, entry := range files {
		gv, _ := entry.Path("gameVersion").Data().(string)
		if gv != gameVersion {
			continue
		}
		fileType, _ := entry.Path("releaseType").Data().(float64) // 1=release, 2=beta, 3=alpha
		fileID, _ := entry.Path("fileId").Data().(float64)
		if int(fileType) < selectedType {
			selectedType = int(fileType)
			selectedFileID = int(fileID)
		}
	}

	if selectedFileID == 0 {
		return 0, fmt.Errorf("no curseforge file found for mod %d on %s", modID, gameVersion)
	}
	return selectedFileID, nil
}

// DownloadURL resolves a file's CDN download URL.
func (c *Client) DownloadURL(ctx context.Context, modID, fileID int) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("/mods/%d/files/%d/download-url", modID, fileID))
	if err != nil {
		return "", err
	}
	url, ok := body.Path("data").Data().(string)
	if !ok {
		return "", fmt.Errorf("curseforge mod %d file %d: no download url in response", modID, fileID)
	}
	return url, nil
}
