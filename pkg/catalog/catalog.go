// pkg/catalog/catalog.go - plugin names discovered from the organisation listing page

package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// SelfName is the installer's own repository, never offered as a plugin.
const SelfName = "SHARKtools_install"

var pluginPattern = regexp.MustCompile(`SHARKtools_[a-zA-Z0-9_]+`)

// Fetcher returns the body of a URL. *download.Downloader satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Cache persists the last good listing. *state.Store satisfies it.
type Cache interface {
	SavePlugins(plugins []string) error
	LoadPlugins() ([]string, error)
}

// Catalog lists plugins from a listing page with a cache fallback.
type Catalog struct {
	URL     string
	Fetcher Fetcher
	Cache   Cache
}

// New returns a Catalog. cache may be nil.
func New(url string, fetcher Fetcher, cache Cache) *Catalog {
	return &Catalog{URL: url, Fetcher: fetcher, Cache: cache}
}

// Parse extracts the sorted unique plugin names from a listing page.
func Parse(page string) []string {
	seen := map[string]bool{}
	var plugins []string
	for _, m := range pluginPattern.FindAllString(page, -1) {
		if m == SelfName || seen[m] {
			continue
		}
		seen[m] = true
		plugins = append(plugins, m)
	}
	sort.Strings(plugins)
	return plugins
}

// Plugins fetches the listing. On any fetch failure the cached list is
// returned instead; the error is only reported when no cache exists.
func (c *Catalog) Plugins(ctx context.Context) ([]string, error) {
	page, err := c.Fetcher.Get(ctx, c.URL)
	if err == nil {
		plugins := Parse(string(page))
		logging.Info("Fetched plugin listing", "url", c.URL, "count", len(plugins))
		if c.Cache != nil {
			if serr := c.Cache.SavePlugins(plugins); serr != nil {
				logging.Warn("Failed to cache plugin listing", "error", serr)
			}
		}
		return plugins, nil
	}

	logging.Warn("Plugin listing unavailable, using cache", "url", c.URL, "error", err)
	if c.Cache == nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	plugins, cerr := c.Cache.LoadPlugins()
	if cerr != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	return plugins, nil
}

// Contains reports whether name is in plugins, ignoring case.
func Contains(plugins []string, name string) bool {
	for _, p := range plugins {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
