package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIsDevelopmentVersion(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"dev", true},
		{"devel+abc123+dirty", true},
		{"v0.1.0", false},
		{"1.0.0-rc.1", false},
		{"develop", false},
		{"DEV", false},
	}
	for _, tt := range tests {
		if got := IsDevelopmentVersion(tt.input); got != tt.want {
			t.Errorf("IsDevelopmentVersion(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseSemverAndIsNewer(t *testing.T) {
	if got := parseSemver("v1.2.3-beta+build"); got != [3]int{1, 2, 3} {
		t.Errorf("parseSemver = %v", got)
	}
	if got := parseSemver("invalid"); got != [3]int{} {
		t.Errorf("parseSemver(invalid) = %v", got)
	}
	if got := parseSemver("2.0"); got != [3]int{2, 0, 0} {
		t.Errorf("parseSemver(2.0) = %v", got)
	}

	tests := []struct {
		latest, current string
		want            bool
	}{
		{"v1.0.0", "v0.9.9", true},
		{"v0.10.0", "v0.9.0", true},
		{"v1.0.0", "v1.0.0", false},
		{"v1.0.0-beta", "v1.0.0", false},
		{"1.0.0", "v0.9.9", true},
		{"v0.1.0", "v0.2.0", false},
	}
	for _, tt := range tests {
		if got := isNewer(tt.latest, tt.current); got != tt.want {
			t.Errorf("isNewer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}
}

func TestUpdateCommand(t *testing.T) {
	cmd := UpdateCommand("v1.2.3")
	if !strings.Contains(cmd, "github.com/marcus/checkin@v1.2.3") {
		t.Errorf("UpdateCommand = %q", cmd)
	}
	for _, bad := range []string{"", "latest", "v1.2.3; rm -rf /", "v1.2.3-"} {
		if got := UpdateCommand(bad); got != "" {
			t.Errorf("UpdateCommand(%q) = %q, want empty", bad, got)
		}
	}
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name": "v1.1.0", "html_url": "https://example.org/r"}`))
	}))
	defer srv.Close()

	old := releasesURL
	releasesURL = srv.URL
	defer func() { releasesURL = old }()

	res := Check(context.Background(), "v1.0.0")
	if res.Error != nil || !res.HasUpdate || res.LatestVersion != "v1.1.0" {
		t.Errorf("Check = %+v", res)
	}

	if res := Check(context.Background(), "dev"); res.LatestVersion != "" {
		t.Errorf("development build was checked: %+v", res)
	}
}

func TestCache(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := LoadCache(); err == nil {
		t.Error("LoadCache without a file should fail")
	}

	entry := &CacheEntry{LatestVersion: "v1.1.0", CurrentVersion: "v1.0.0", CheckedAt: time.Now(), HasUpdate: true}
	if err := SaveCache(entry); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}
	loaded, err := LoadCache()
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	if !IsCacheValid(loaded, "v1.0.0") {
		t.Errorf("fresh cache invalid: %+v", loaded)
	}
	if IsCacheValid(loaded, "v1.1.0") {
		t.Error("cache valid after upgrade")
	}

	loaded.CheckedAt = time.Now().Add(-7 * time.Hour)
	if IsCacheValid(loaded, "v1.0.0") {
		t.Error("expired cache valid")
	}
	if IsCacheValid(nil, "v1.0.0") {
		t.Error("nil cache valid")
	}
}

func TestCheckAsyncUsesCache(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := SaveCache(&CacheEntry{LatestVersion: "v2.0.0", CurrentVersion: "v1.0.0", CheckedAt: time.Now(), HasUpdate: true}); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	msg := CheckAsync("v1.0.0")()
	update, ok := msg.(UpdateAvailableMsg)
	if !ok {
		t.Fatalf("msg = %#v, want UpdateAvailableMsg", msg)
	}
	if update.LatestVersion != "v2.0.0" || update.UpdateCommand == "" {
		t.Errorf("update = %+v", update)
	}
}
