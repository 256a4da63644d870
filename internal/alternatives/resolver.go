package alternatives

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/iacscan/iacscan/internal/errors"
	"github.com/iacscan/iacscan/internal/observability"
)

// ResolverConfig wires a resolver's sources and policy
type ResolverConfig struct {
	Cache        Cache
	Live         Source // nil when the live tier could not be initialized
	Curated      Source
	Region       string
	Architecture string
	Limit        int
	// KnownVulnerable cross-checks live results against the currently
	// known-vulnerable identifier set
	KnownVulnerable func(imageID string) bool
	Logger          *slog.Logger
}

// Resolver produces verified replacement shortlists for flagged images.
// Every lookup failure is non-fatal; the worst outcome is an empty shortlist
// with a reason code.
type Resolver struct {
	cfg     ResolverConfig
	metrics *observability.Metrics
}

// NewResolver creates a resolver over the configured source tiers
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Limit <= 0 {
		cfg.Limit = 3
	}
	if cfg.KnownVulnerable == nil {
		cfg.KnownVulnerable = func(string) bool { return false }
	}
	return &Resolver{cfg: cfg, metrics: observability.GetMetrics()}
}

// Resolve returns up to Limit verified candidates for a flagged image. The
// name drives distribution detection; an image without a name falls back to
// the default distribution.
func (r *Resolver) Resolve(ctx context.Context, imageID, name string) Result {
	dist := DefaultDistribution
	if name != "" {
		detected, ok := DetectDistribution(name)
		if !ok {
			r.cfg.Logger.Debug("no distribution pattern matched",
				"image_id", imageID,
				"name", name)
			r.metrics.LookupsTotal.WithLabelValues(string(errors.ReasonUnknownDistribution)).Inc()
			return Result{Reason: errors.ReasonUnknownDistribution}
		}
		dist = detected
	}

	key := Key{Distribution: dist, Region: r.cfg.Region, Architecture: r.cfg.Architecture}

	candidates, reason := r.lookup(ctx, key)
	candidates = r.filter(candidates)
	candidates = rank(candidates, r.cfg.Region)
	if len(candidates) > r.cfg.Limit {
		candidates = candidates[:r.cfg.Limit]
	}

	r.metrics.LookupsTotal.WithLabelValues(string(reason)).Inc()
	r.metrics.CandidatesServed.Add(float64(len(candidates)))

	return Result{Candidates: candidates, Reason: reason}
}

// lookup walks the tier chain, short-circuiting on the first tier that
// yields at least one candidate
func (r *Resolver) lookup(ctx context.Context, key Key) ([]Candidate, errors.ReasonCode) {
	if r.cfg.Cache != nil {
		cached, ok, err := r.cfg.Cache.Get(ctx, key)
		if err != nil {
			r.cfg.Logger.Warn("cache read failed",
				"distribution", key.Distribution,
				"error", err.Error())
		} else if ok && len(cached) > 0 {
			r.metrics.CacheHits.Inc()
			r.metrics.TierHits.WithLabelValues(TierCache).Inc()
			return cached, errors.ReasonNone
		} else {
			r.metrics.CacheMisses.Inc()
		}
	}

	liveFailed := false
	if r.cfg.Live != nil {
		live, err := r.cfg.Live.Lookup(ctx, key)
		if err != nil {
			liveFailed = true
			r.cfg.Logger.Warn("live lookup failed, falling through",
				"distribution", key.Distribution,
				"region", key.Region,
				"error", err.Error())
		} else if len(live) > 0 {
			r.metrics.TierHits.WithLabelValues(TierLive).Inc()
			r.populateCache(ctx, key, live)
			return live, errors.ReasonNone
		}
	}

	curated, err := r.cfg.Curated.Lookup(ctx, key)
	if err != nil {
		r.cfg.Logger.Warn("curated lookup failed",
			"distribution", key.Distribution,
			"error", err.Error())
		return nil, errors.ReasonLookupFailed
	}
	if len(curated) > 0 {
		r.metrics.TierHits.WithLabelValues(TierCurated).Inc()
	}

	switch {
	case liveFailed:
		return curated, errors.ReasonLookupFailed
	case r.cfg.Live == nil:
		return curated, errors.ReasonUsingOfflineData
	default:
		return curated, errors.ReasonNone
	}
}

func (r *Resolver) populateCache(ctx context.Context, key Key, candidates []Candidate) {
	if r.cfg.Cache == nil {
		return
	}
	if err := r.cfg.Cache.Put(ctx, key, candidates); err != nil {
		r.cfg.Logger.Warn("cache write failed",
			"distribution", key.Distribution,
			"error", err.Error())
	}
}

// filter drops candidates not verified CVE-free and anything in the
// known-vulnerable set
func (r *Resolver) filter(candidates []Candidate) []Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if !c.VerifiedCVEFree {
			continue
		}
		if r.cfg.KnownVulnerable(c.ImageID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// rank orders candidates deterministically: requested region first, most
// recently verified first, newer version first when both parse as semver,
// identifier string as the final tie-break.
func rank(candidates []Candidate, region string) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if (a.Region == region) != (b.Region == region) {
			return a.Region == region
		}
		if !a.LastVerified.Equal(b.LastVerified) {
			return a.LastVerified.After(b.LastVerified)
		}
		va, errA := semver.NewVersion(a.Version)
		vb, errB := semver.NewVersion(b.Version)
		if errA == nil && errB == nil && !va.Equal(vb) {
			return va.GreaterThan(vb)
		}
		return a.ImageID < b.ImageID
	})
	return candidates
}
