package mapping

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolveTerm(t *testing.T) {
	page := Page{
		URL:     mustURL(t, "https://blog.example/posts/hello.html?utm_source=x&id=7&utm_medium=y&utm_campaign=z#top"),
		Title:   "Hello",
		OGTitle: "Hello (og)",
		Term:    "fixed",
	}

	tests := []struct {
		strategy Strategy
		want     string
	}{
		{StrategyPathname, "/posts/hello"},
		{StrategyURL, "https://blog.example/posts/hello.html?id=7"},
		{StrategyTitle, "Hello"},
		{StrategyOGTitle, "Hello (og)"},
		{StrategySpecific, "fixed"},
		{StrategyNumber, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			require.Equal(t, tt.want, ResolveTerm(tt.strategy, page))
		})
	}
}

func TestResolveTerm_PathnameEdges(t *testing.T) {
	require.Equal(t, "/", ResolveTerm(StrategyPathname, Page{URL: mustURL(t, "https://blog.example/")}))
	require.Equal(t, "/docs", ResolveTerm(StrategyPathname, Page{URL: mustURL(t, "https://blog.example/docs/")}))
	require.Equal(t, "/", ResolveTerm(StrategyPathname, Page{}))
}

func TestResolveTerm_OGTitleFallsBackToTitle(t *testing.T) {
	require.Equal(t, "Hello", ResolveTerm(StrategyOGTitle, Page{Title: "Hello"}))
}

func TestBuildSearchQuery(t *testing.T) {
	require.Equal(t,
		`repo:owner/repo category:"General" in:title "/posts/hello"`,
		BuildSearchQuery("owner/repo", "General", "/posts/hello", false),
	)

	require.Equal(t,
		`repo:owner/repo category:"General" in:body "`+Fingerprint("/posts/hello")+`"`,
		BuildSearchQuery("owner/repo", "General", "/posts/hello", true),
	)

	require.Equal(t,
		`repo:owner/repo in:title "x"`,
		BuildSearchQuery("owner/repo", "", "x", false),
	)
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint("/posts/hello")
	require.Equal(t, a, Fingerprint("/posts/hello"))
	require.NotEqual(t, a, Fingerprint("/posts/hello2"))
	require.Regexp(t, `^[0-9a-f]{1,16}$`, a)
}

func TestDiscussionTitleAndBody(t *testing.T) {
	require.Equal(t, "/posts/hello", DiscussionTitle("/posts/hello", 0))
	require.Equal(t, "Comments for 42", DiscussionTitle("", 42))

	require.Equal(t, "Comments for this page.", DiscussionBody("t", false))

	body := DiscussionBody("t", true)
	require.Contains(t, body, StrictMarker("t"))
	require.Contains(t, body, Fingerprint("t"))
	require.Contains(t, body, "Comments for this page.")
}
