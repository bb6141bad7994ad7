// Package domain defines the core types of the disposable-domain engine.
//
// Types in this package are pure value objects with no database or HTTP
// dependencies. They are the shared language between the blocklist
// pipeline, the disposable service, the repositories and the API.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB/YAML tags are allowed (they're metadata, not behavior)
//   - Small pure helpers on the types are allowed
package domain
