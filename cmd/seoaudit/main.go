// Package main provides the entry point for the seoaudit CLI.
//
// seoaudit audits a single web page for on-page SEO, compares it with the
// pages ranking for its primary keyword, and writes a prioritized
// optimization report.
//
// Usage:
//
//	seoaudit audit <url>
//	seoaudit serve
//	seoaudit history [url]
//
// See --help for all available options.
package main

// main is the entry point for seoaudit.
func main() {
	Execute()
}
