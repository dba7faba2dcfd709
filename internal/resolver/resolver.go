// Package resolver turns user references, such as URLs and search phrases,
// into playable media descriptors.
//
// Each Source recognizes one family of references. The Resolver routes a
// reference to the first source that matches it, bounds the lookup with a
// timeout, rate-limits outbound catalog traffic, and memoizes results in an
// optional cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/averraz/troubadour/internal/media"
)

// Source resolves references it recognizes into playable descriptors.
type Source interface {
	// Name identifies the source in logs and error messages.
	Name() string

	// Match reports whether the reference belongs to this source.
	Match(reference string) bool

	// Resolve turns the reference into zero or more descriptors. A search
	// that finds nothing returns an empty slice and no error; a reference
	// that cannot be fetched returns an error.
	Resolve(ctx context.Context, reference string) ([]media.Descriptor, error)
}

// Cache memoizes resolved references. A miss is never an error, and
// implementations are free to drop entries at any time.
type Cache interface {
	Get(ctx context.Context, reference string) ([]media.Descriptor, bool)
	Put(ctx context.Context, reference string, descs []media.Descriptor)
}

// Outbound catalog lookups across all sessions share one limiter, so a
// burst of enqueues cannot hammer the upstream catalogs.
const (
	lookupInterval = 250 * time.Millisecond
	lookupBurst    = 4
)

// Resolver routes references to sources. Safe for concurrent use.
type Resolver struct {
	sources []Source
	cache   Cache
	timeout time.Duration
	limiter *rate.Limiter
}

// New builds a resolver that tries sources in the given order. cache may be
// nil to disable memoization.
func New(timeout time.Duration, cache Cache, sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		cache:   cache,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Every(lookupInterval), lookupBurst),
	}
}

// Resolve maps a reference to descriptors. It returns ErrInvalidReference
// for input no source recognizes, ErrResolutionTimeout when the bounded
// lookup expires, and ErrUpstreamUnavailable for catalog failures. An empty
// result with a nil error means the reference was understood but nothing
// matched it.
func (r *Resolver) Resolve(ctx context.Context, reference string) ([]media.Descriptor, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	if r.cache != nil {
		if descs, ok := r.cache.Get(ctx, reference); ok {
			return descs, nil
		}
	}

	source := r.route(reference)
	if source == nil {
		return nil, fmt.Errorf("%w: no source recognizes %q", ErrInvalidReference, reference)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, classify(source.Name(), err)
	}

	start := time.Now()
	descs, err := source.Resolve(ctx, reference)
	if err != nil {
		return nil, classify(source.Name(), err)
	}
	slog.Debug("resolved reference",
		"source", source.Name(),
		"reference", reference,
		"results", len(descs),
		"elapsed", time.Since(start),
	)

	if len(descs) > 0 && r.cache != nil {
		r.cache.Put(ctx, reference, descs)
	}
	return descs, nil
}

func (r *Resolver) route(reference string) Source {
	for _, source := range r.sources {
		if source.Match(reference) {
			return source
		}
	}
	return nil
}

// classify folds source failures into the resolver's error taxonomy.
// A caller's own cancellation passes through untouched so it never reads
// as an upstream problem.
func classify(source string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", source, ErrResolutionTimeout)
	case errors.Is(err, ErrInvalidReference),
		errors.Is(err, ErrUpstreamUnavailable),
		errors.Is(err, ErrResolutionTimeout):
		return fmt.Errorf("%s: %w", source, err)
	default:
		return fmt.Errorf("%s: %w: %w", source, ErrUpstreamUnavailable, err)
	}
}

// IsURL reports whether the reference looks like an absolute http(s) URL.
// Anything else is treated as a search phrase.
func IsURL(reference string) bool {
	return strings.HasPrefix(reference, "http://") || strings.HasPrefix(reference, "https://")
}
