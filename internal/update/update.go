// Package update checks the toolkit's release channels for newer
// versions.
package update

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/collective-modding/cm-toolkit/internal/config"
	"github.com/collective-modding/cm-toolkit/internal/constants"
	"github.com/collective-modding/cm-toolkit/internal/httpclient"
)

// Available describes a release that is newer than the running build.
type Available struct {
	Version string
	Source  string
	URL     string
}

// Check queries the channels the update_source setting selects and
// returns one entry per channel that has a newer release. Channel
// failures are silent; an update banner is never worth an error.
func Check(ctx context.Context, doer httpclient.Doer, source string, currentVersion string) []Available {
	var found []Available

	if source == config.UpdateSourceNexus || source == config.UpdateSourceBoth {
		if version, err := latestNexusVersion(ctx, doer); err == nil && newerVersion(version, currentVersion) {
			found = append(found, Available{
				Version: version,
				Source:  "Nexus Mods",
				URL:     constants.NexusModURL,
			})
		}
	}

	if source == config.UpdateSourceGithub || source == config.UpdateSourceBoth {
		if release, err := latestGithubRelease(ctx, doer); err == nil && newerVersion(release.TagName, currentVersion) {
			url := release.HTMLURL
			if url == "" {
				url = fmt.Sprintf("https://github.com/%s/releases/latest", constants.GithubRepo)
			}
			found = append(found, Available{
				Version: release.TagName,
				Source:  "GitHub",
				URL:     url,
			})
		}
	}

	return found
}

// newerVersion reports whether latest is a strictly newer semantic
// version than current. Unparseable versions never trigger a banner.
func newerVersion(latest string, current string) bool {
	latestCanonical := canonical(latest)
	currentCanonical := canonical(current)
	if !semver.IsValid(latestCanonical) || !semver.IsValid(currentCanonical) {
		return false
	}
	return semver.Compare(latestCanonical, currentCanonical) > 0
}

func canonical(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return version
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}
