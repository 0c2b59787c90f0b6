// Package tasks runs playlist rules against the catalog with progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.Run] : Converge one rule's playlist
//     - Looks up the rule and its playlist, creating the playlist on first run
//     - Resolves the rule's target track set
//     - Fetches current membership and computes the add/remove plan
//     - Applies the plan in batches, removals first
//
//  2. [SyncEngine.Plan] : Dry run of [SyncEngine.Run]
//     - Never creates playlists or writes to them
//     - A playlist that does not exist yet is planned as empty
//
//  3. [SyncEngine.RunAll] : [SyncEngine.Run] for every rule in file order, stopping at the first error
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [PlaylistEngine] implements [SyncEngine] with dependencies on:
//   - [services.Catalog] : the music catalog
//   - [rules.Registry] : rule definitions and playlist lookup
//   - [reconcile.Applier] : batched plan application
package tasks
