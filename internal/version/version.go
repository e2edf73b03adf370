// Package version checks GitHub releases for a newer checkin build.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// releasesURL is a var so tests can point it at a fake
var releasesURL = "https://api.github.com/repos/marcus/checkin/releases/latest"

// Release is the part of a GitHub release response we read.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CheckResult holds the result of a version check.
type CheckResult struct {
	CurrentVersion string
	LatestVersion  string
	UpdateURL      string
	HasUpdate      bool
	Error          error
}

// Check fetches the latest release and compares it with currentVersion.
// Development builds are never checked.
func Check(ctx context.Context, currentVersion string) CheckResult {
	result := CheckResult{CurrentVersion: currentVersion}
	if IsDevelopmentVersion(currentVersion) {
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		result.Error = err
		return result
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Error = err
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("github api: %s", resp.Status)
		return result
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		result.Error = err
		return result
	}

	result.LatestVersion = release.TagName
	result.UpdateURL = release.HTMLURL
	result.HasUpdate = isNewer(release.TagName, currentVersion)
	return result
}

// IsDevelopmentVersion returns true for non-release versions.
func IsDevelopmentVersion(v string) bool {
	return v == "" || v == "unknown" || v == "dev" || v == "devel" || strings.HasPrefix(v, "devel+")
}

// releaseTag matches tags that are safe to paste into a shell command
var releaseTag = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[a-zA-Z0-9]+([.-][a-zA-Z0-9]+)*)?$`)

// UpdateCommand returns the go install line for a release, or "" for a
// tag that does not look like a version.
func UpdateCommand(version string) string {
	if !releaseTag.MatchString(version) {
		return ""
	}
	return fmt.Sprintf("go install -ldflags \"-X main.Version=%s\" github.com/marcus/checkin@%s", version, version)
}

// parseSemver extracts major.minor.patch, ignoring prerelease and build
// suffixes. Missing or invalid parts are 0.
func parseSemver(v string) [3]int {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var out [3]int
	for i, part := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return [3]int{}
		}
		out[i] = n
	}
	return out
}

// isNewer reports whether latest has a higher core version than current
func isNewer(latest, current string) bool {
	l, c := parseSemver(latest), parseSemver(current)
	for i := range l {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}
