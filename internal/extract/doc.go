// Package extract turns page URLs into classified page contents, using the
// file cache so that each page is fetched and classified at most once.
//
// For each URL the cache key is the md5 of the URL. A page is a cache hit
// only when both its fragment file and its content file exist; a hit never
// touches the network. On a miss the main content is fetched (a failed
// fetch yields an empty fragment), the fragment is stored, the page is
// classified and the content file is stored.
//
// A page whose classification fails is skipped: it is logged, nothing is
// stored for it and it is left out of the result. An authentication
// failure of the classifier or a cancelled context aborts the batch.
package extract
