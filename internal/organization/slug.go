package organization

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	slugAlphabet      = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugSuffixLength  = 4
	slugRandomRetries = 5
	maxSlugLength     = 100
)

var (
	invalidCodeChars = regexp.MustCompile(`[^a-z0-9-]`)
	nonAlphanumeric  = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeCode keeps only lowercase letters, digits and hyphens.
func NormalizeCode(code string) string {
	return invalidCodeChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(code)), "")
}

// SlugFromName lowercases name, collapses non-alphanumeric runs into one
// hyphen and trims hyphens from both ends.
func SlugFromName(name string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}

// ResolveSlug returns the normalized code, or the slug derived from name when
// the code normalizes to nothing.
func ResolveSlug(code, name string) string {
	slug := NormalizeCode(code)
	if slug == "" {
		slug = SlugFromName(name)
	}
	return truncateSlug(slug, maxSlugLength)
}

func truncateSlug(slug string, n int) string {
	if len(slug) <= n {
		return slug
	}
	return strings.TrimRight(slug[:n], "-")
}

// withSuffix joins candidate and suffix with a hyphen, shortening candidate
// so the result stays within maxSlugLength.
func withSuffix(candidate, suffix string) string {
	base := truncateSlug(candidate, maxSlugLength-len(suffix)-1)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// SlugExistsFunc reports whether a slug is already taken.
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

type SlugGenerator struct {
	Exists SlugExistsFunc
	Now    func() time.Time
	// Suffix returns a random suffix; nil means crypto/rand over [a-z0-9].
	Suffix func(n int) (string, error)
}

// Unique probes the candidate, then up to five random 4-character suffixes,
// then falls back to a base-36 timestamp suffix. At most seven lookups are made.
func (g SlugGenerator) Unique(ctx context.Context, candidate string) (string, error) {
	candidate = truncateSlug(candidate, maxSlugLength)
	taken, err := g.Exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	suffix := g.Suffix
	if suffix == nil {
		suffix = randomSuffix
	}
	for i := 0; i < slugRandomRetries; i++ {
		s, err := suffix(slugSuffixLength)
		if err != nil {
			return "", err
		}
		next := withSuffix(candidate, s)
		taken, err := g.Exists(ctx, next)
		if err != nil {
			return "", err
		}
		if !taken {
			return next, nil
		}
	}

	now := g.Now
	if now == nil {
		now = time.Now
	}
	fallback := withSuffix(candidate, strconv.FormatInt(now().UnixMilli(), 36))
	taken, err = g.Exists(ctx, fallback)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("no free slug for %q", candidate)
	}
	return fallback, nil
}

func randomSuffix(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(slugAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(slugAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
