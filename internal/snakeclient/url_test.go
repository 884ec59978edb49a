package snakeclient

import (
	"strings"
	"testing"
)

func TestBuildEndpointURL(t *testing.T) {
	cases := []struct {
		name     string
		base     string
		endpoint string
		want     string
	}{
		{"plain base", "https://example.com", "move", "https://example.com/move"},
		{"trailing slash collapsed", "https://example.com/", "move", "https://example.com/move"},
		{"multiple trailing slashes", "https://example.com//", "start", "https://example.com/start"},
		{"preserves query string", "https://example.com/api?token=secret", "move", "https://example.com/api/move?token=secret"},
		{"preserves port", "http://localhost:8080", "end", "http://localhost:8080/end"},
		{"nested path", "https://example.com/snakes/my-snake", "move", "https://example.com/snakes/my-snake/move"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := buildEndpointURL(c.base, c.endpoint)
			if got != c.want {
				t.Fatalf("buildEndpointURL(%q, %q) = %q, want %q", c.base, c.endpoint, got, c.want)
			}
		})
	}
}

func TestBuildEndpointURLNeverDoubleSlashes(t *testing.T) {
	bases := []string{
		"https://example.com",
		"https://example.com/",
		"https://example.com///",
		"https://example.com/api?x=1",
	}
	for _, base := range bases {
		got := buildEndpointURL(base, "move")
		// Skip the scheme separator ("://"), which always holds a "//".
		afterScheme := got[strings.Index(got, "://")+len("://"):]
		if strings.Contains(afterScheme, "//") {
			t.Fatalf("buildEndpointURL(%q) produced a double slash: %q", base, got)
		}
	}
}

func TestBuildEndpointURLFallsBackOnUnparseableBase(t *testing.T) {
	// An invalid percent-encoding makes url.Parse fail; the fallback
	// must still trim trailing slashes and append the endpoint.
	base := "http://example.com/%zz/"
	got := buildEndpointURL(base, "move")
	want := "http://example.com/%zz/move"
	if got != want {
		t.Fatalf("buildEndpointURL(%q) = %q, want %q", base, got, want)
	}
}
