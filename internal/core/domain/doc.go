// Package domain defines the core business entities for ksef-desk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Identity: The active profile (name, NIP, environment)
//   - Credential: A bearer access token plus a refresh token, each with an expiry
//   - SearchQuery: A validated, normalised invoice metadata query
//   - InvoiceSummary: One record of the current result set
//   - DownloadJob: A transient request to export selected invoices
//   - ProgressEvent: A broadcast notification about a running job
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
