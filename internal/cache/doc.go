// Package cache provides a file-based key/value store with TTL expiration.
//
// The catalog client uses it to keep entities fetched by reference on disk
// between CLI invocations, so repeated scaffolder runs against the same refs
// do not hit the catalog every time. Entries are JSON files under
// ~/.stagehand/cache/catalog by default, named after a SHA256 of the key.
package cache
