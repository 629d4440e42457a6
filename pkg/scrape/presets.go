package scrape

import (
	"sort"
	"strings"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Preset is a curated starting target for a platform, surfaced through
// the API and CLI so users can discover what to scrape.
type Preset struct {
	Platform    types.Platform `json:"platform"`
	Target      string         `json:"target"`
	Description string         `json:"description"`
}

var defaultPresets = []Preset{
	{types.PlatformReddit, "programming", "Programming discussions"},
	{types.PlatformReddit, "technology", "Technology news and updates"},
	{types.PlatformReddit, "golang", "Go programming language"},
	{types.PlatformReddit, "rust", "Rust programming language"},
	{types.PlatformReddit, "python", "Python programming"},
	{types.PlatformReddit, "linux", "Linux operating system"},
	{types.PlatformReddit, "netsec", "Network and information security"},
	{types.PlatformReddit, "selfhosted", "Self-hosted services and homelab"},
	{types.PlatformReddit, "opensource", "Open source projects and discussions"},
	{types.PlatformReddit, "privacy", "Privacy-focused discussions"},
	{types.PlatformMastodon, "#programming", "Programming discussions"},
	{types.PlatformMastodon, "#technology", "Technology news and updates"},
	{types.PlatformMastodon, "#opensource", "Open source projects and discussions"},
	{types.PlatformMastodon, "#golang", "Go programming language"},
	{types.PlatformMastodon, "#security", "Cybersecurity topics"},
	{types.PlatformMastodon, "#linux", "Linux operating system"},
}

// SearchPresets fuzzy-matches curated targets. An empty query returns the
// whole catalog; a platform narrows the catalog before matching.
func SearchPresets(platform types.Platform, query string) []Preset {
	catalog := make([]Preset, 0, len(defaultPresets))
	for _, preset := range defaultPresets {
		if platform != "" && preset.Platform != platform {
			continue
		}
		catalog = append(catalog, preset)
	}

	if strings.TrimSpace(query) == "" {
		return catalog
	}

	type ranked struct {
		preset Preset
		rank   int
	}
	var matches []ranked
	for _, preset := range catalog {
		haystack := preset.Target + " " + preset.Description
		rank := fuzzy.RankMatchNormalizedFold(query, haystack)
		if rank < 0 {
			continue
		}
		matches = append(matches, ranked{preset, rank})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })

	out := make([]Preset, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.preset)
	}
	return out
}
