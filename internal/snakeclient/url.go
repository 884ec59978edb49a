package snakeclient

import (
	"net/url"
	"strings"
)

// buildEndpointURL appends endpoint ("start"|"move"|"end") to base's
// path while preserving its query string verbatim. Trailing slashes on
// the base path are collapsed first so the result never contains "//".
// If base fails to parse as a URL, falls back to string concatenation
// with trailing-slash trimming — this must stay bit-compatible with
// existing snake servers (SPEC_FULL.md §4.A).
func buildEndpointURL(base, endpoint string) string {
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + endpoint
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/" + endpoint
	return u.String()
}
