// CLAUDE:SUMMARY Ordered selector rules and heuristic constants used to flag ad containers.
package detect

// Rule is an immutable selector rule. Rules are evaluated in order.
type Rule struct {
	Name     string `yaml:"name" json:"name"`
	Selector string `yaml:"selector" json:"selector"`
}

// DefaultMinArea is the minimum bounding area (px²) for the heuristic pass
// and for the watcher's direct size check.
const DefaultMinArea = 2000

// Keywords flag a generic container as ad-like when found in its class or
// id, case-insensitively, as substrings.
var Keywords = []string{"ad", "banner", "sponsor"}

// Containers are the generic container tags inspected by the heuristic pass.
var Containers = []string{"div", "section", "aside"}

// DefaultRules returns the built-in rule list.
func DefaultRules() []Rule {
	return []Rule{
		// Broad matches, kept first.
		{Name: "banner-class", Selector: `[class*="banner"]`},
		{Name: "ad-class", Selector: `[class*="ad-"]`},
		{Name: "ad-frame", Selector: `iframe[src*="ad"]`},
		{Name: "google-ads-id", Selector: `[id^="google_ads"]`},

		// Ad-network frames.
		{Name: "doubleclick-frame", Selector: `iframe[src*="doubleclick.net"]`},
		{Name: "adsense-frame", Selector: `iframe[src*="googlesyndication.com"]`},
		{Name: "adservices-frame", Selector: `iframe[src*="googleadservices.com"]`},
		{Name: "amazon-frame", Selector: `iframe[src*="amazon-adsystem.com"]`},
		{Name: "appnexus-frame", Selector: `iframe[src*="adnxs.com"]`},
		{Name: "taboola-frame", Selector: `iframe[src*="taboola.com"]`},
		{Name: "outbrain-frame", Selector: `iframe[src*="outbrain.com"]`},
		{Name: "gpt-frame", Selector: `iframe[id^="google_ads_iframe"]`},

		// Ad tag markers.
		{Name: "adsbygoogle", Selector: `ins.adsbygoogle`},
		{Name: "ad-client", Selector: `ins[data-ad-client]`},
		{Name: "ad-slot", Selector: `[data-ad-slot]`},
		{Name: "ad-unit", Selector: `[data-ad-unit]`},
		{Name: "gpt-query", Selector: `[data-google-query-id]`},
		{Name: "gpt-slot", Selector: `div[id^="div-gpt-ad"]`},

		// Naming conventions.
		{Name: "advertisement", Selector: `.advertisement`},
		{Name: "ad-banner", Selector: `.ad-banner, .banner-ad`},
		{Name: "sponsor-class", Selector: `[class*="sponsor"]`},
		{Name: "sponsor-id", Selector: `[id*="sponsor"]`},
		{Name: "ad-prefix-class", Selector: `[class^="ad-"]`},
		{Name: "ad-prefix-id", Selector: `[id^="ad-"]`},
	}
}
