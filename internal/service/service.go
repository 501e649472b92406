// Package service holds the two operations of the system: allocating a slug
// for a destination URL and resolving a slug back to it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"shortlink/internal/model"
	"shortlink/internal/repository"
	"shortlink/internal/slug"
)

var (
	// ErrSlugOccupied means the requested slug already maps to a URL.
	ErrSlugOccupied = errors.New("slug already in use")
	// ErrTooManyRetries means slug generation exhausted its attempt budget.
	// Transient; the whole request can be retried.
	ErrTooManyRetries = errors.New("unable to find a free slug")
	// ErrStoreUnavailable wraps lower-level store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound means no mapping exists for the slug.
	ErrNotFound = errors.New("short url not found")
	// ErrEmptyDestination rejects an allocation without a destination URL.
	ErrEmptyDestination = errors.New("destination url is empty")
)

// maxAttempts bounds how many random candidates an allocation may try.
const maxAttempts = 10

// Store is the persistence surface the service needs. *repository.Repo
// satisfies it; tests plug in fakes.
type Store interface {
	GetBySlug(ctx context.Context, slug string) (*model.URLMapping, error)
	Insert(ctx context.Context, slug, url, creatorAddress string) (*model.URLMapping, error)
	IncrementUsage(ctx context.Context, slug string) error
}

// SlugGenerator produces random slug candidates.
type SlugGenerator interface {
	Generate() (string, error)
}

type Service struct {
	store Store
	gen   SlugGenerator
	log   *slog.Logger
}

func NewService(store Store, gen SlugGenerator, log *slog.Logger) *Service {
	if gen == nil {
		gen = slug.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, gen: gen, log: log}
}

// Allocate records a mapping from a slug to destination and returns the row
// the store persisted. With a requested slug the caller either gets exactly
// that slug or ErrSlugOccupied; otherwise random candidates are tried until
// one sticks or the attempt budget runs out.
func (s *Service) Allocate(ctx context.Context, destination, requestedSlug, creatorAddress string) (*model.URLMapping, error) {
	if destination == "" {
		return nil, ErrEmptyDestination
	}

	if requestedSlug != "" {
		if s.occupied(ctx, requestedSlug) {
			return nil, ErrSlugOccupied
		}
		m, err := s.store.Insert(ctx, requestedSlug, destination, creatorAddress)
		if errors.Is(err, repository.ErrDuplicateSlug) {
			// Lost the race to a concurrent allocation of the same slug.
			return nil, ErrSlugOccupied
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return m, nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := s.gen.Generate()
		if err != nil {
			s.log.WarnContext(ctx, "slug generation failed", "error", err)
			continue
		}
		if s.occupied(ctx, candidate) {
			continue
		}
		m, err := s.store.Insert(ctx, candidate, destination, creatorAddress)
		if errors.Is(err, repository.ErrDuplicateSlug) {
			// The unique constraint caught a collision the pre-check missed.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return m, nil
	}

	return nil, ErrTooManyRetries
}

// occupied reports whether a slug is taken. A store failure counts as taken:
// a flaky existence check must never let an occupied slug be reused.
func (s *Service) occupied(ctx context.Context, candidate string) bool {
	_, err := s.store.GetBySlug(ctx, candidate)
	if errors.Is(err, repository.ErrNotFound) {
		return false
	}
	if err != nil {
		s.log.WarnContext(ctx, "slug existence check failed, assuming collision",
			"slug", candidate, "error", err)
	}
	return true
}

// Resolve returns the destination URL for a slug and bumps its usage counter.
// The counter is best-effort telemetry: if the increment fails the redirect
// still goes through and the failure is only logged.
func (s *Service) Resolve(ctx context.Context, slugID string) (string, error) {
	m, err := s.store.GetBySlug(ctx, slugID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if err := s.store.IncrementUsage(ctx, slugID); err != nil {
		s.log.WarnContext(ctx, "unable to update usage_count", "slug", slugID, "error", err)
	}
	return m.URL, nil
}
