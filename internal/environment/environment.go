// Package environment reads runtime environment configuration.
package environment

import (
	"os"
)

var (
	posthogAPIKeyDefault = "REPL_POSTHOG_API_KEY" // #nosec G101 -- build-time placeholder replaced in release builds.
	patchBaseURLDefault  = "https://github.com/wxMichael/Collective-Modding-Toolkit/releases/download/delta-patches/"
)

func PosthogAPIKey() string {
	key, present := os.LookupEnv("POSTHOG_API_KEY")
	if present {
		return key
	}

	return posthogAPIKeyDefault
}

// PatchBaseURL is the release location delta patches are fetched from.
// Overridable for tests and mirrors.
func PatchBaseURL() string {
	url, present := os.LookupEnv("CMT_PATCH_BASE_URL")
	if present {
		return url
	}

	return patchBaseURLDefault
}

func AppVersion() string {
	return "REPL_VERSION"
}

func HelpURL() string {
	return "REPL_HELP_URL"
}
