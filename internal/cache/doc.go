// Package cache implements the content-addressed file store that lets
// crosslink rerun without repeating network or classification work.
//
// Layout under the root directory:
//
//	<root>/<md5(url)>.html                      extracted main-content fragment
//	<root>/<md5(url)>.json                      classified page content
//	<root>/intersections/<md5(src:dst)>.json    filtered candidates of one pair
//
// The presence of a file is the only validity signal. Entries are never
// updated in place except when the store runs in bypass mode. Writes go
// through a temporary file and a rename, so concurrent writers of the same
// key leave one complete file behind.
package cache
