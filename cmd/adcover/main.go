// CLAUDE:SUMMARY CLI entry point for adcover: watch (live tabs), scan (HTTP only), pages (cover_pages table).
// Command adcover covers likely advertisements with a neutral overlay.
//
// Usage:
//
//	adcover watch --config adcover.yaml     # cover configured pages until SIGINT
//	adcover watch --url https://example.com # single page, stdout sink
//	adcover scan https://example.com --out covered.html
//	adcover pages add https://example.com --db adcover.db
package main

import (
	"os"

	_ "modernc.org/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
