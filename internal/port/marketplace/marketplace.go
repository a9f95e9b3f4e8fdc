// Package marketplace defines the port to the marketplace backend that owns
// the raw records the gateway aggregates.
package marketplace

import (
	"context"

	"github.com/circularsync/gateway/internal/domain/snapshot"
)

// Backend is the read-only view of the marketplace backend.
type Backend interface {
	ListMaterialSubmissions(ctx context.Context) ([]snapshot.Submission, error)
	ListWarehouseInventory(ctx context.Context, warehouseID string) ([]snapshot.InventoryItem, error)
	GetUser(ctx context.Context, userID string) (*snapshot.UserProfile, error)
	GetPriceRecommendation(ctx context.Context, materialType string) (*snapshot.PriceRecommendation, error)
}
