// Package main provides the entry point for the crosslink CLI.
//
// crosslink reads the sitemaps of two sites, extracts every listed page and
// proposes hyperlinks from pages of the first site to pages of the second,
// each with an anchor text found on the source page and a reason.
//
// Usage:
//
//	crosslink start -m https://my.example/sitemap.xml -s https://target.example/sitemap.xml
//
// See --help for all available options.
package main

func main() {
	Execute()
}
