// Package blocklist retrieves and parses the upstream list of disposable
// email domains.
//
// A Fetcher returns the raw list body for a URL; Parse turns that body into
// a deduplicated, lowercase sequence of domains. Neither step knows about
// runtime overrides or storage: merging and persisting belong to the
// disposable service's Updater.
package blocklist
