// Package selfupdate is a thin version-check surface: it compares the
// running build's semver against the latest GitHub release tag. It does
// not download, verify, or install anything — the daemon has no
// self-replace feature, only the -c CLI flag that calls
// Check once and prints the result.
package selfupdate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blang/semver/v4"
)

const releasesURL = "https://api.github.com/repos/h0lylag/evepreviewd/releases?per_page=1&page=1"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// Result is the outcome of a version check.
type Result struct {
	Current   semver.Version
	Latest    semver.Version
	Available bool
}

// Check compares currentVersion against the latest published release tag.
// currentVersion is a raw semver string (e.g. "1.4.0"); an unparsable
// current version (development builds) always reports Available=false
// rather than erroring, since there's nothing sensible to compare against.
func Check(currentVersion string) (Result, error) {
	current, err := semver.Make(currentVersion)
	if err != nil {
		return Result{}, nil
	}

	latestTag, err := fetchLatestTag()
	if err != nil {
		return Result{}, fmt.Errorf("selfupdate: fetch latest release: %w", err)
	}

	latest, err := semver.Make(latestTag)
	if err != nil {
		return Result{}, fmt.Errorf("selfupdate: parse release tag %q: %w", latestTag, err)
	}

	return Result{
		Current:   current,
		Latest:    latest,
		Available: current.Compare(latest) < 0,
	}, nil
}

func fetchLatestTag() (string, error) {
	client := http.Client{Timeout: 2 * time.Second}

	req, err := http.NewRequest(http.MethodGet, releasesURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "evepreviewd")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var releases []githubRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return "", err
	}
	if len(releases) == 0 {
		return "", fmt.Errorf("no releases published")
	}
	return releases[0].TagName, nil
}
