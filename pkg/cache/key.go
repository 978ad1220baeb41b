package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
)

// Key identifies one cacheable aggregation. Two requests naming the
// same repositories in any order, with the same timeframe and series
// flag, produce the same key.
type Key struct {
	fingerprint string
}

// NewKey canonicalizes the request into a stable fingerprint. The
// repository list is sorted and lowercased before hashing so ordering
// and casing differences never fragment the cache.
func NewKey(repos []activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) Key {
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, strings.ToLower(r.String()))
	}
	sort.Strings(names)

	h := sha256.New()
	fmt.Fprintf(h, "v1|%s|%t|%s", timeframe, includeSeries, strings.Join(names, ","))
	return Key{fingerprint: hex.EncodeToString(h.Sum(nil))}
}

// String returns the hex fingerprint used as the storage key
func (k Key) String() string {
	return k.fingerprint
}

// RedisKey namespaces the fingerprint for the shared Redis instance
func (k Key) RedisKey() string {
	return "hyperbeats:activity:" + k.fingerprint
}
