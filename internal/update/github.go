package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collective-modding/cm-toolkit/internal/constants"
	"github.com/collective-modding/cm-toolkit/internal/environment"
	"github.com/collective-modding/cm-toolkit/internal/httpclient"
	"github.com/collective-modding/cm-toolkit/internal/perf"
)

const githubBaseURL = "https://api.github.com"

type githubClient struct {
	client httpclient.Doer
}

func (gh *githubClient) Do(request *http.Request) (*http.Response, error) {
	ctx, span := perf.StartSpan(request.Context(), "api.github.http.request", perf.WithAttributes(attribute.String("url", request.URL.String())))
	defer span.End()
	headers := map[string]string{
		"user-agent":           fmt.Sprintf("github_com/%s/%s", constants.GithubRepo, environment.AppVersion()),
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}

	for key, value := range headers {
		request.Header.Add(key, value)
	}

	return gh.client.Do(request.WithContext(ctx))
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// latestGithubRelease asks the GitHub API for the newest published
// release of the toolkit repository.
func latestGithubRelease(ctx context.Context, doer httpclient.Doer) (*githubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", githubBaseURL, constants.GithubRepo)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building github release request")
	}

	client := &githubClient{client: doer}
	response, err := client.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "fetching latest github release")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status code from github: %d", response.StatusCode)
	}

	release := &githubRelease{}
	if err := json.NewDecoder(response.Body).Decode(release); err != nil {
		return nil, errors.Wrap(err, "decoding github release")
	}
	return release, nil
}
