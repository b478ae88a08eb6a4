package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrProfileNotFound is returned when neither the name nor its demo variant resolves.
var ErrProfileNotFound = errors.New("profile: business profile not found")

// ErrInvalidName rejects identifiers that could escape a storage namespace.
var ErrInvalidName = errors.New("profile: invalid business name")

var businessNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// DemoSuffix is appended to a business name when the exact profile is missing.
const DemoSuffix = "Demo"

// Status distinguishes a resolved profile from a clean miss.
type Status int

const (
	NotFound Status = iota
	Found
)

func (s Status) String() string {
	if s == Found {
		return "found"
	}
	return "not_found"
}

// Resolution is the typed result of a profile lookup.
type Resolution struct {
	Status  Status
	Profile *BusinessProfile
	// Key is the storage name that matched, e.g. "AcmeDemo".
	Key string
}

func found(key string, p *BusinessProfile) Resolution {
	return Resolution{Status: Found, Profile: p, Key: key}
}

// Resolver loads business profiles from a storage medium.
// A miss is reported as Status NotFound with a nil error; errors mean the lookup itself failed.
type Resolver interface {
	Resolve(ctx context.Context, business string) (Resolution, error)
}

// Writer is implemented by stores that accept administrative profile updates.
type Writer interface {
	Put(ctx context.Context, business string, p *BusinessProfile) error
}

// ValidName reports whether business is a safe storage identifier.
func ValidName(business string) bool {
	return businessNamePattern.MatchString(business)
}

// candidates returns the lookup order for a business name.
func candidates(business string) []string {
	return []string{business, business + DemoSuffix}
}

// Load resolves business and converts a miss into ErrProfileNotFound.
func Load(ctx context.Context, r Resolver, business string) (*BusinessProfile, error) {
	if !ValidName(business) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, business)
	}
	res, err := r.Resolve(ctx, business)
	if err != nil {
		return nil, err
	}
	if res.Status != Found || res.Profile == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, business)
	}
	return res.Profile, nil
}

func normalize(key string, p *BusinessProfile) *BusinessProfile {
	if p.Name == "" {
		p.Name = key
	}
	return p
}
