// Package contextkeys provides centralized context key definitions.
// All context keys used across the application are defined here so key
// usage stays discoverable and collision-free.
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: logging, response headers
	RequestIDKey Key = "request_id"

	// IdentityKey contains the *ratelimit.Identity of the caller
	// Set by: middleware.APIKeyAuth
	// Used by: rate limit middleware, handlers
	IdentityKey Key = "identity"
)
