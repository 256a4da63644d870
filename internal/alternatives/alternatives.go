// Package alternatives resolves flagged machine-image identifiers to verified
// CVE-free replacement candidates. Sources form a tiered chain (cache, live
// registry, curated offline dataset); every failure degrades to an empty
// shortlist with a reason code instead of an error.
package alternatives

import (
	"context"
	"time"

	"github.com/iacscan/iacscan/internal/errors"
)

// Source tiers, in consultation order
const (
	TierCache   = "cache"
	TierLive    = "live"
	TierCurated = "curated"
)

// Key identifies one lookup bucket
type Key struct {
	Distribution string
	Region       string
	Architecture string
}

// Candidate is one suggested replacement image. Produced fresh per lookup,
// never mutated after creation.
type Candidate struct {
	ImageID         string
	Name            string
	Distribution    string
	Version         string
	Region          string
	Architecture    string
	SourceTier      string
	LastVerified    time.Time
	VerifiedCVEFree bool
}

// Source is one tier in the fallback chain
type Source interface {
	Name() string
	Lookup(ctx context.Context, key Key) ([]Candidate, error)
}

// Cache stores completed lookups across sessions. Implementations handle TTL
// expiry internally; an expired entry reads as absent.
type Cache interface {
	Get(ctx context.Context, key Key) ([]Candidate, bool, error)
	Put(ctx context.Context, key Key, candidates []Candidate) error
}

// Result is a resolved shortlist. Reason explains a short or empty list.
type Result struct {
	Candidates []Candidate
	Reason     errors.ReasonCode
}
