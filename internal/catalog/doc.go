// Package catalog is a client for the software catalog's REST API.
//
// It covers what the scaffolder fetch action and the TechDocs collator need:
// entity references, lookups by reference, and filtered listing. HTTPClient
// talks to /api/catalog on the backend; CachingClient keeps by-ref lookups in
// the on-disk entity cache.
package catalog
