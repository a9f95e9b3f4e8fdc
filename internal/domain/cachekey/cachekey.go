// Package cachekey builds the deterministic cache keys of the proxy routes.
// Keys have the form "<namespace>:<resource>[:<id>]".
package cachekey

import (
	"fmt"

	"github.com/circularsync/gateway/internal/domain"
)

// Fixed keys.
const (
	VerificationStats = "admin:material-verification:stats"
	SubmissionList    = "admin:material-submissions:list"
)

// Prefixes of per-id keys.
const (
	WarehouseStatsPrefix = "warehouse:stats:"
	UserProfilePrefix    = "user:profile:"
	PricingPrefix        = "pricing:recommendation:"
)

// MaxIDLength bounds path ids embedded in keys.
const MaxIDLength = 128

// WarehouseStats returns the key of a warehouse's stats.
func WarehouseStats(id string) string { return WarehouseStatsPrefix + id }

// UserProfile returns the key of a user's profile.
func UserProfile(id string) string { return UserProfilePrefix + id }

// Pricing returns the key of a material type's price recommendation.
func Pricing(materialType string) string { return PricingPrefix + materialType }

// ValidateID checks that id is non-empty, at most MaxIDLength bytes, and
// only uses [A-Za-z0-9_.-]. Glob metacharacters and ':' are therefore
// never part of a generated key.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required: %w", domain.ErrValidation)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("id longer than %d characters: %w", MaxIDLength, domain.ErrValidation)
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '-', c == '.':
		default:
			return fmt.Errorf("id contains invalid character %q: %w", c, domain.ErrValidation)
		}
	}
	return nil
}
