package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hyperionkit/hyperbeats/pkg/contextkeys"
	"github.com/hyperionkit/hyperbeats/pkg/httputil"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
	"github.com/hyperionkit/hyperbeats/pkg/ratelimit"
)

// APIKeyHeader carries the caller's key
const APIKeyHeader = "X-API-Key"

// KeyRecord is the stored metadata for one API key
type KeyRecord struct {
	Name      string     `json:"name"`
	Tier      string     `json:"tier"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// KeyStore resolves a hashed API key to its record. A nil record with
// nil error means the key is unknown.
type KeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*KeyRecord, error)
}

// RedisKeyStore reads key records provisioned out-of-band into Redis
type RedisKeyStore struct {
	client *redis.Client
	prefix string
}

// NewRedisKeyStore creates a Redis-backed key store
func NewRedisKeyStore(client *redis.Client) *RedisKeyStore {
	return &RedisKeyStore{client: client, prefix: "hyperbeats:apikey"}
}

// Lookup resolves one hashed key
func (s *RedisKeyStore) Lookup(ctx context.Context, keyHash string) (*KeyRecord, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf("%s:%s", s.prefix, keyHash)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("api key lookup failed: %w", err)
	}

	var record KeyRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("corrupt api key record: %w", err)
	}
	return &record, nil
}

// StaticKeyStore serves a fixed key set from config; used for small
// deployments and tests.
type StaticKeyStore struct {
	records map[string]*KeyRecord
}

// NewStaticKeyStore builds a store from plaintext key to tier
func NewStaticKeyStore(keys map[string]string) *StaticKeyStore {
	records := make(map[string]*KeyRecord, len(keys))
	for key, tier := range keys {
		records[HashKey(key)] = &KeyRecord{Tier: tier, IsActive: true}
	}
	return &StaticKeyStore{records: records}
}

// Lookup resolves one hashed key
func (s *StaticKeyStore) Lookup(ctx context.Context, keyHash string) (*KeyRecord, error) {
	return s.records[keyHash], nil
}

// HashKey hashes an API key for storage and lookup; plaintext keys are
// never persisted.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Auth resolves each request's rate limit identity. Callers without a
// key, or with an unknown, inactive, or expired key, fall back to the
// public tier keyed by client IP; a valid key yields its stored tier
// keyed by the key hash. A failing key store also falls back to public
// so auth outages degrade service level rather than availability.
type Auth struct {
	store  KeyStore
	logger *observability.Logger
}

// NewAuth creates the auth middleware. logger may be nil.
func NewAuth(store KeyStore, logger *observability.Logger) *Auth {
	return &Auth{store: store, logger: logger}
}

// Handler attaches the resolved identity to the request context
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := a.resolve(r)
		ctx := context.WithValue(r.Context(), contextkeys.IdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) resolve(r *http.Request) ratelimit.Identity {
	public := ratelimit.Identity{
		Key:  "ip:" + httputil.ClientIP(r),
		Tier: ratelimit.TierPublic,
	}

	apiKey := r.Header.Get(APIKeyHeader)
	if apiKey == "" || a.store == nil {
		return public
	}

	keyHash := HashKey(apiKey)
	record, err := a.store.Lookup(r.Context(), keyHash)
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Warn("api key store unavailable, treating caller as public")
		}
		return public
	}
	if record == nil || !record.IsActive {
		return public
	}
	if record.ExpiresAt != nil && time.Now().After(*record.ExpiresAt) {
		return public
	}

	tier := ratelimit.Tier(record.Tier)
	switch tier {
	case ratelimit.TierAuthenticated, ratelimit.TierEnterprise:
	default:
		tier = ratelimit.TierAuthenticated
	}
	return ratelimit.Identity{Key: "key:" + keyHash, Tier: tier}
}

// IdentityFromContext returns the identity resolved by Auth, or a
// public zero identity when the middleware did not run.
func IdentityFromContext(ctx context.Context) ratelimit.Identity {
	if id, ok := ctx.Value(contextkeys.IdentityKey).(ratelimit.Identity); ok {
		return id
	}
	return ratelimit.Identity{Key: "ip:unknown", Tier: ratelimit.TierPublic}
}
