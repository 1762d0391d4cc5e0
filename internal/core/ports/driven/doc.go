// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - InvoiceService: Paginated metadata query and single-invoice fetch
//   - Authenticator: Full authentication and refresh-token exchange
//   - CredentialStore: One credential per identity key
//   - ResultCache: Last result set and query per identity key
//   - PreferencesStore: Opaque browser preferences
//   - ConfigStore / ProfileStore: Application configuration and profiles
//   - EventPublisher: Progress notifications
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - DocumentRenderer: PDF output. Without it, PDF exports fail with ErrRendererUnavailable.
//   - ArtifactMirror: Copies of downloaded files in remote stores.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
