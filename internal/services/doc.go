// Package services defines the [Catalog] interface for the remote music catalog and implements it for Spotify.
//
// # Catalog Interface
//
// The rule resolver and the reconciler only talk to the catalog through [Catalog] (or a narrower interface of their own),
// so tests run against an in-memory double and the HTTP client stays thin plumbing.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates every call with the account's OAuth token via an [oauth2.StaticTokenSource].
// The token is assumed valid for the whole run; there is no refresh.
// Calls are throttled by a [rate.Limiter] and paginated endpoints are followed through their "next" cursor.
//
// # Error Handling
//
// Any non-2xx response becomes a [CatalogError] carrying the failing operation and status code.
// It unwraps to [shared.ErrAPIRequest].
// Add/remove batches larger than [shared.MaxBatchSize] are rejected with [shared.ErrInvalidInput] before any request is made.
//
// # API Mappings
//
// Track identifiers are Spotify track URIs ("spotify:track:..."), artist identifiers are Spotify artist IDs.
package services
