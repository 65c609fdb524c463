// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

// Package cache implements the two caches spec.md §5/§7 calls for:
//
//   - Catalog: an in-process, immutable-within-a-run memoization of the five
//     VersionCatalog sources (spec.md §4.1 "Catalogs are immutable within a
//     single run; TTL ≥ one process lifetime").
//   - Resolution: a persistent, sqlite-backed fingerprint cache mapping a
//     declaration's label to its last-resolved project. internal/resolver
//     holds a handle to it but neither reads nor writes it, so every
//     resolve run queries Modrinth/CurseForge afresh.
//
// Grounded on the teacher's metacache.go (sqlite AddModFile/GetLastModFile
// shape), generalized from "installed file" to "resolved project".
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog memoizes one upstream fetch per key for the lifetime of the
// process. Fetch is idempotent per key: concurrent callers for the same key
// block on the same in-flight fetch rather than issuing duplicate requests.
type Catalog struct {
	mu    sync.Mutex
	done  map[string]bool
	value map[string]interface{}
	err   map[string]error
}

func NewCatalog() *Catalog {
	return &Catalog{
		done:  make(map[string]bool),
		value: make(map[string]interface{}),
		err:   make(map[string]error),
	}
}

// Fetch returns the cached value for key, calling fn at most once per key
// for the process's lifetime.
func (c *Catalog) Fetch(key string, fn func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done[key] {
		v, err := fn()
		c.done[key] = true
		c.value[key] = v
		c.err[key] = err
	}
	return c.value[key], c.err[key]
}

// Reset clears every memoized entry; used between test cases only, since
// production catalogs live for the process's whole lifetime.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = make(map[string]bool)
	c.value = make(map[string]interface{})
	c.err = make(map[string]error)
}

// Resolution is the persistent fingerprint cache of resolved declarations,
// stored at <target_dir>/.empack.cache (sibling to the advisory lockfile).
type Resolution struct {
	db   *sql.DB
	path string
}

// OpenResolution opens (creating if absent) the sqlite fingerprint cache at
// the given file path.
func OpenResolution(path string) (*Resolution, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open resolution cache: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS resolutions (
		label       TEXT PRIMARY KEY,
		platform    TEXT NOT NULL,
		project_id  TEXT NOT NULL,
		project_name TEXT NOT NULL,
		confidence  REAL NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open resolution cache: migrate: %w", err)
	}

	return &Resolution{db: db, path: path}, nil
}

func (r *Resolution) Close() error {
	return r.db.Close()
}

// Entry is one cached resolution outcome.
type Entry struct {
	Label       string
	Platform    string
	ProjectID   string
	ProjectName string
	Confidence  float64
}

// Put records (or replaces) the resolution outcome for a label.
func (r *Resolution) Put(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO resolutions(label, platform, project_id, project_name, confidence)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Label, e.Platform, e.ProjectID, e.ProjectName, e.Confidence)
	return err
}

// Get returns the last resolution recorded for label, if any.
func (r *Resolution) Get(ctx context.Context, label string) (Entry, bool, error) {
	var e Entry
	e.Label = label
	row := r.db.QueryRowContext(ctx,
		`SELECT platform, project_id, project_name, confidence FROM resolutions WHERE label = ?`, label)
	err := row.Scan(&e.Platform, &e.ProjectID, &e.ProjectName, &e.Confidence)
	switch {
	case err == sql.ErrNoRows:
		return Entry{}, false, nil
	case err != nil:
		return Entry{}, false, fmt.Errorf("lookup resolution for %q: %w", label, err)
	}
	return e, true, nil
}

// Forget removes a cached resolution, used when a declaration's hint text
// changes and the previous resolution should no longer be trusted.
func (r *Resolution) Forget(ctx context.Context, label string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM resolutions WHERE label = ?`, label)
	return err
}
