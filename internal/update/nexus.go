package update

import (
	"bufio"
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collective-modding/cm-toolkit/internal/constants"
	"github.com/collective-modding/cm-toolkit/internal/httpclient"
	"github.com/collective-modding/cm-toolkit/internal/perf"
)

// Nexus Mods has no public version API, but the mod page embeds the
// current version in its Twitter card metadata:
//
//	<meta property="twitter:label1" content="Version" />
//	<meta property="twitter:data1" content="1.0.3" />
const nexusVersionLabel = `<meta property="twitter:label1" content="Version"`

// latestNexusVersion scrapes the toolkit's Nexus Mods page for the
// published version string.
func latestNexusVersion(ctx context.Context, doer httpclient.Doer) (string, error) {
	spanCtx, span := perf.StartSpan(ctx, "api.nexus.http.request", perf.WithAttributes(attribute.String("url", constants.NexusModURL)))
	defer span.End()

	request, err := http.NewRequestWithContext(spanCtx, http.MethodGet, constants.NexusModURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "building nexus request")
	}

	response, err := doer.Do(request)
	if err != nil {
		return "", errors.Wrap(err, "fetching nexus mod page")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status code from nexus: %d", response.StatusCode)
	}

	versionNext := false
	lines := bufio.NewScanner(response.Body)
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		if versionNext {
			return metaContent(line)
		}
		if strings.HasPrefix(line, nexusVersionLabel) {
			versionNext = true
		}
	}
	if err := lines.Err(); err != nil {
		return "", errors.Wrap(err, "reading nexus mod page")
	}
	return "", errors.New("version metadata not found on nexus mod page")
}

// metaContent pulls the content attribute value, the second-to-last
// quoted section of the meta tag line.
func metaContent(line string) (string, error) {
	parts := strings.Split(line, `"`)
	if len(parts) < 3 {
		return "", errors.Errorf("malformed version metadata: %q", line)
	}
	return parts[len(parts)-2], nil
}
