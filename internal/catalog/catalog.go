// Package catalog loads and selects advertisement entries (spec 4.7, 6),
// grounded in original_source/src/config/ads.py's AdsManager: load from a
// JSON file, fall back to a single default NVIDIA entry when the file is
// missing or unreadable, select by matching target scenarios against the
// video theme, and allow a hot Reload.
package catalog

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/bobarin/adinsert/internal/logging"
	"github.com/bobarin/adinsert/internal/pipeline"
)

type adJSON struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Product         string              `json:"product"`
	Category        string              `json:"category"`
	Enabled         bool                `json:"enabled"`
	Priority        int                 `json:"priority"`
	SellingPoints   []string            `json:"selling_points"`
	TargetScenarios []string            `json:"target_scenarios"`
	Templates       map[string][]string `json:"templates"`
}

type catalogJSON struct {
	Ads []adJSON `json:"ads"`
}

// Catalog holds the loaded ad entries and supports reload-in-place.
type Catalog struct {
	mu   sync.RWMutex
	path string
	ads  []pipeline.AdEntry
	log  *logging.Logger
}

// Load reads path and builds a Catalog. A missing or malformed file is not
// an error: the catalog falls back to the single default ad, matching
// AdsManager._create_default_config.
func Load(path string, log *logging.Logger) (*Catalog, error) {
	c := &Catalog{path: path, log: log}
	c.load()
	return c, nil
}

func (c *Catalog) load() {
	ads, err := readCatalogFile(c.path)
	if err != nil {
		c.log.Warn("ad catalog unavailable (%v), using default NVIDIA ad", err)
		ads = []pipeline.AdEntry{defaultAd()}
	}

	c.mu.Lock()
	c.ads = ads
	c.mu.Unlock()
}

// Reload re-reads the catalog file, falling back to the default ad on
// failure, matching AdsManager.reload.
func (c *Catalog) Reload() {
	c.load()
}

func readCatalogFile(path string) ([]pipeline.AdEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var parsed catalogJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	ads := make([]pipeline.AdEntry, 0, len(parsed.Ads))
	for _, a := range parsed.Ads {
		ads = append(ads, pipeline.AdEntry{
			ID:              a.ID,
			DisplayName:     a.Name,
			Product:         a.Product,
			Category:        a.Category,
			Enabled:         a.Enabled,
			Priority:        a.Priority,
			SellingPoints:   a.SellingPoints,
			TargetScenarios: a.TargetScenarios,
			Templates:       a.Templates,
		})
	}
	return ads, nil
}

func defaultAd() pipeline.AdEntry {
	return pipeline.AdEntry{
		ID:              "nvidia_gpu",
		DisplayName:     "NVIDIA Compute",
		Product:         "NVIDIA GPU",
		Category:        "tech/compute",
		Enabled:         true,
		Priority:        1,
		SellingPoints:   []string{"high-performance AI compute", "deep learning acceleration", "faster training"},
		TargetScenarios: []string{"AI development", "deep learning", "tech tutorials"},
		Templates: map[string][]string{
			"general": {"NVIDIA compute, serious performance."},
		},
	}
}

// Enabled returns the enabled ads.
func (c *Catalog) Enabled() []pipeline.AdEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]pipeline.AdEntry, 0, len(c.ads))
	for _, ad := range c.ads {
		if ad.Enabled {
			out = append(out, ad)
		}
	}
	return out
}

// Primary returns the highest-priority (lowest Priority value) enabled ad.
func (c *Catalog) Primary() (pipeline.AdEntry, bool) {
	enabled := c.Enabled()
	if len(enabled) == 0 {
		return pipeline.AdEntry{}, false
	}

	best := enabled[0]
	for _, ad := range enabled[1:] {
		if ad.Priority < best.Priority {
			best = ad
		}
	}
	return best, true
}

// SelectForTheme picks the first enabled ad whose target scenarios
// substring-match videoTheme, falling back to Primary (spec 4.7,
// select_ad_for_video).
func (c *Catalog) SelectForTheme(videoTheme string) (pipeline.AdEntry, bool) {
	enabled := c.Enabled()
	for _, ad := range enabled {
		for _, scenario := range ad.TargetScenarios {
			if scenario != "" && strings.Contains(videoTheme, scenario) {
				return ad, true
			}
		}
	}
	return c.Primary()
}
