package service

import (
	"context"
	"time"

	"github.com/circularsync/gateway/internal/config"
	"github.com/circularsync/gateway/internal/domain/cachekey"
	"github.com/circularsync/gateway/internal/domain/snapshot"
	"github.com/circularsync/gateway/internal/port/marketplace"
)

// DashboardService serves the cached marketplace views behind the proxy routes.
type DashboardService struct {
	cache   *ReadThrough
	backend marketplace.Backend
	routes  map[string]config.Route
}

// NewDashboardService creates a DashboardService. routes supplies per-route TTLs.
func NewDashboardService(cache *ReadThrough, backend marketplace.Backend, routes map[string]config.Route) *DashboardService {
	return &DashboardService{cache: cache, backend: backend, routes: routes}
}

// VerificationStats returns submission counts by verification outcome.
func (s *DashboardService) VerificationStats(ctx context.Context) (*Result, error) {
	return s.cache.Get(ctx, cachekey.VerificationStats, s.ttl(config.RouteVerificationStats), func(ctx context.Context) (any, error) {
		subs, err := s.backend.ListMaterialSubmissions(ctx)
		if err != nil {
			return nil, err
		}
		return snapshot.VerificationStatsFrom(subs)
	})
}

// SubmissionList returns all submissions with group-by counts.
func (s *DashboardService) SubmissionList(ctx context.Context) (*Result, error) {
	return s.cache.Get(ctx, cachekey.SubmissionList, s.ttl(config.RouteSubmissions), func(ctx context.Context) (any, error) {
		subs, err := s.backend.ListMaterialSubmissions(ctx)
		if err != nil {
			return nil, err
		}
		return snapshot.SubmissionListFrom(subs)
	})
}

// WarehouseStats returns a warehouse's inventory aggregate.
func (s *DashboardService) WarehouseStats(ctx context.Context, warehouseID string) (*Result, error) {
	if err := cachekey.ValidateID(warehouseID); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, cachekey.WarehouseStats(warehouseID), s.ttl(config.RouteWarehouseStats), func(ctx context.Context) (any, error) {
		items, err := s.backend.ListWarehouseInventory(ctx, warehouseID)
		if err != nil {
			return nil, err
		}
		return snapshot.WarehouseStatsFrom(warehouseID, items)
	})
}

// UserProfile returns a user's profile as the user service reports it.
func (s *DashboardService) UserProfile(ctx context.Context, userID string) (*Result, error) {
	if err := cachekey.ValidateID(userID); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, cachekey.UserProfile(userID), s.ttl(config.RouteUserProfile), func(ctx context.Context) (any, error) {
		return s.backend.GetUser(ctx, userID)
	})
}

// PriceRecommendation returns bid guidance for a material type with
// reversed bounds normalized.
func (s *DashboardService) PriceRecommendation(ctx context.Context, materialType string) (*Result, error) {
	if err := cachekey.ValidateID(materialType); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, cachekey.Pricing(materialType), s.ttl(config.RoutePricing), func(ctx context.Context) (any, error) {
		rec, err := s.backend.GetPriceRecommendation(ctx, materialType)
		if err != nil {
			return nil, err
		}
		return snapshot.NormalizePrice(*rec)
	})
}

// InvalidateVerificationStats clears the verification stats view.
func (s *DashboardService) InvalidateVerificationStats(ctx context.Context) error {
	return s.cache.Invalidate(ctx, cachekey.VerificationStats)
}

// InvalidateSubmissions clears the submissions list and the stats derived
// from the same records.
func (s *DashboardService) InvalidateSubmissions(ctx context.Context) error {
	return s.cache.Invalidate(ctx, cachekey.SubmissionList, cachekey.VerificationStats)
}

// InvalidateWarehouse clears one warehouse's stats.
func (s *DashboardService) InvalidateWarehouse(ctx context.Context, warehouseID string) error {
	if err := cachekey.ValidateID(warehouseID); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, cachekey.WarehouseStats(warehouseID))
}

// InvalidateUser clears one user's profile.
func (s *DashboardService) InvalidateUser(ctx context.Context, userID string) error {
	if err := cachekey.ValidateID(userID); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, cachekey.UserProfile(userID))
}

// InvalidatePricing clears one material type's recommendation.
func (s *DashboardService) InvalidatePricing(ctx context.Context, materialType string) error {
	if err := cachekey.ValidateID(materialType); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, cachekey.Pricing(materialType))
}

func (s *DashboardService) ttl(route string) time.Duration {
	return s.routes[route].TTL
}
