package fetcher

import (
	"bytes"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var shellMarkers = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// IsSufficient reports whether the static HTML carries real content. A
// false result means the page is likely rendered by script and an
// HTTP-only scan will miss late ad slots; the live watcher is needed.
func IsSufficient(html []byte) bool {
	if len(html) < 256 {
		return false
	}
	lower := bytes.ToLower(html)
	for _, m := range shellMarkers {
		if bytes.Contains(lower, m) {
			return false
		}
	}

	text := visibleText(html)
	if text < 200 {
		return false
	}
	// Less than 10% text is an app shell.
	return float64(text)/float64(len(html)) >= 0.10
}

// visibleText counts non-space runes in body text, scripts and styles
// excluded.
func visibleText(html []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return 0
	}
	body := doc.Find("body")
	body.Find("script, style, noscript, template").Remove()

	n := 0
	for _, r := range body.Text() {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
