package version

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const cacheTTL = 6 * time.Hour

// CacheEntry is the last successful check, stored so the monitor does not
// hit GitHub on every start.
type CacheEntry struct {
	LatestVersion  string    `json:"latest_version"`
	CurrentVersion string    `json:"current_version"`
	CheckedAt      time.Time `json:"checked_at"`
	HasUpdate      bool      `json:"has_update"`
}

func cachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "checkin", "version_cache.json")
}

// LoadCache reads the cached check result
func LoadCache() (*CacheEntry, error) {
	data, err := os.ReadFile(cachePath())
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveCache writes a check result to the cache
func SaveCache(entry *CacheEntry) error {
	path := cachePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IsCacheValid reports whether entry is fresh and was made for currentVersion
func IsCacheValid(entry *CacheEntry, currentVersion string) bool {
	return entry != nil && entry.CurrentVersion == currentVersion && time.Since(entry.CheckedAt) < cacheTTL
}
