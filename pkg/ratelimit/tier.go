package ratelimit

// Tier is a caller's service level, resolved from its API key
type Tier string

const (
	// TierPublic covers unauthenticated callers, identified by IP
	TierPublic Tier = "public"
	// TierAuthenticated covers callers presenting a valid API key
	TierAuthenticated Tier = "authenticated"
	// TierEnterprise is exempt from rate limiting
	TierEnterprise Tier = "enterprise"
)

const (
	publicHourlyLimit        = 100
	authenticatedHourlyLimit = 1000
)

// Limit returns the tier's hourly request budget; 0 means unbounded
func (t Tier) Limit() int64 {
	switch t {
	case TierAuthenticated:
		return authenticatedHourlyLimit
	case TierEnterprise:
		return 0
	default:
		return publicHourlyLimit
	}
}

// Unbounded reports whether the tier bypasses the limiter entirely
func (t Tier) Unbounded() bool {
	return t == TierEnterprise
}

// Identity is the unit of rate accounting: a caller key plus its tier.
// Public callers use "ip:<addr>", authenticated callers "key:<hash>".
type Identity struct {
	Key  string
	Tier Tier
}
