package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobarin/adinsert/internal/logging"
)

func TestLoadFallsBackToDefaultOnMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.json"), logging.New("test"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ads := c.Enabled()
	if len(ads) != 1 || ads[0].ID != "nvidia_gpu" {
		t.Errorf("expected single default NVIDIA ad, got %+v", ads)
	}
}

func TestSelectForThemeMatchesScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ads.json")
	writeCatalog(t, path, catalogJSON{Ads: []adJSON{
		{ID: "a", Name: "A", Enabled: true, Priority: 2, TargetScenarios: []string{"cooking"}},
		{ID: "b", Name: "B", Enabled: true, Priority: 1, TargetScenarios: []string{"tech"}},
	}})

	c, err := Load(path, logging.New("test"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ad, ok := c.SelectForTheme("a cooking show")
	if !ok || ad.ID != "a" {
		t.Errorf("SelectForTheme() = %+v, ok=%v, want ad a", ad, ok)
	}
}

func TestSelectForThemeFallsBackToPrimary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ads.json")
	writeCatalog(t, path, catalogJSON{Ads: []adJSON{
		{ID: "a", Name: "A", Enabled: true, Priority: 2, TargetScenarios: []string{"cooking"}},
		{ID: "b", Name: "B", Enabled: true, Priority: 1, TargetScenarios: []string{"tech"}},
	}})

	c, err := Load(path, logging.New("test"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ad, ok := c.SelectForTheme("unrelated gardening content")
	if !ok || ad.ID != "b" {
		t.Errorf("SelectForTheme() = %+v, ok=%v, want primary ad b", ad, ok)
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ads.json")
	writeCatalog(t, path, catalogJSON{Ads: []adJSON{{ID: "a", Name: "A", Enabled: true, Priority: 1}}})

	c, err := Load(path, logging.New("test"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	writeCatalog(t, path, catalogJSON{Ads: []adJSON{{ID: "z", Name: "Z", Enabled: true, Priority: 1}}})
	c.Reload()

	ads := c.Enabled()
	if len(ads) != 1 || ads[0].ID != "z" {
		t.Errorf("expected reloaded catalog to contain ad z, got %+v", ads)
	}
}

func writeCatalog(t *testing.T, path string, data catalogJSON) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal catalog: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
}
