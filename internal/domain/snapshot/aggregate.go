package snapshot

import (
	"fmt"
	"log/slog"

	"github.com/circularsync/gateway/internal/domain"
)

// Submission statuses counted by VerificationStatsFrom.
const (
	StatusVerified = "verified"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// UnspecifiedDelivery buckets submissions without a delivery method.
const UnspecifiedDelivery = "unspecified"

// VerificationStats summarizes the admin verification queue.
type VerificationStats struct {
	TotalSubmissions     int `json:"totalSubmissions"`
	Verified             int `json:"verified"`
	Rejected             int `json:"rejected"`
	PendingVerifications int `json:"pendingVerifications"`
}

// SubmissionList is the admin submissions view with group-by counts.
type SubmissionList struct {
	Submissions      []Submission   `json:"submissions"`
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"byStatus"`
	ByDeliveryMethod map[string]int `json:"byDeliveryMethod"`
}

// WarehouseStats aggregates a warehouse's inventory.
type WarehouseStats struct {
	WarehouseID    string         `json:"warehouseId"`
	TotalItems     int            `json:"totalItems"`
	TotalWeightKg  float64        `json:"totalWeightKg"`
	ByMaterialType map[string]int `json:"byMaterialType"`
	ByStatus       map[string]int `json:"byStatus"`
}

// VerificationStatsFrom counts submissions by verification outcome.
// Any status other than verified, approved or rejected is pending.
func VerificationStatsFrom(subs []Submission) (VerificationStats, error) {
	stats := VerificationStats{TotalSubmissions: len(subs)}
	for i := range subs {
		if subs[i].ID == "" {
			return VerificationStats{}, fmt.Errorf("submission %d: missing id: %w", i, domain.ErrMalformed)
		}
		switch subs[i].Status {
		case StatusVerified, StatusApproved:
			stats.Verified++
		case StatusRejected:
			stats.Rejected++
		default:
			stats.PendingVerifications++
		}
	}
	return stats, nil
}

// SubmissionListFrom returns the submissions with counts by status and delivery method.
func SubmissionListFrom(subs []Submission) (SubmissionList, error) {
	list := SubmissionList{
		Submissions:      subs,
		Total:            len(subs),
		ByStatus:         make(map[string]int),
		ByDeliveryMethod: make(map[string]int),
	}
	if list.Submissions == nil {
		list.Submissions = []Submission{}
	}
	for i := range subs {
		s := &subs[i]
		if s.ID == "" {
			return SubmissionList{}, fmt.Errorf("submission %d: missing id: %w", i, domain.ErrMalformed)
		}
		list.ByStatus[s.Status]++
		method := s.DeliveryMethod
		if method == "" {
			method = UnspecifiedDelivery
		}
		list.ByDeliveryMethod[method]++
	}
	return list, nil
}

// WarehouseStatsFrom sums a warehouse's inventory. Negative weights are rejected.
func WarehouseStatsFrom(warehouseID string, items []InventoryItem) (WarehouseStats, error) {
	stats := WarehouseStats{
		WarehouseID:    warehouseID,
		TotalItems:     len(items),
		ByMaterialType: make(map[string]int),
		ByStatus:       make(map[string]int),
	}
	for i := range items {
		it := &items[i]
		if it.ID == "" {
			return WarehouseStats{}, fmt.Errorf("inventory item %d: missing id: %w", i, domain.ErrMalformed)
		}
		if it.WeightKg < 0 {
			return WarehouseStats{}, fmt.Errorf("inventory item %s: negative weight %v: %w", it.ID, it.WeightKg, domain.ErrMalformed)
		}
		stats.TotalWeightKg += it.WeightKg
		stats.ByMaterialType[it.MaterialType]++
		stats.ByStatus[it.Status]++
	}
	return stats, nil
}

// NormalizePrice swaps SuggestedBid and MinAcceptable when they arrive
// reversed and marks the result as Normalized.
//
// The pricing service has been observed to return the bounds in the wrong
// order. Whether swapping is the right business rule is still open with
// product, so every swap is logged at warn level.
func NormalizePrice(rec PriceRecommendation) (PriceRecommendation, error) {
	if rec.MaterialType == "" {
		return PriceRecommendation{}, fmt.Errorf("price recommendation: missing material type: %w", domain.ErrMalformed)
	}
	if rec.SuggestedBid < 0 || rec.MinAcceptable < 0 {
		return PriceRecommendation{}, fmt.Errorf("price recommendation %s: negative bound: %w", rec.MaterialType, domain.ErrMalformed)
	}
	if rec.SuggestedBid < rec.MinAcceptable {
		slog.Warn("pricing bounds reversed, swapping",
			"material_type", rec.MaterialType,
			"suggested_bid", rec.SuggestedBid,
			"min_acceptable", rec.MinAcceptable,
		)
		rec.SuggestedBid, rec.MinAcceptable = rec.MinAcceptable, rec.SuggestedBid
		rec.Normalized = true
	}
	return rec, nil
}
