package snapshot

import (
	"errors"
	"testing"

	"github.com/circularsync/gateway/internal/domain"
)

func threeSubmissions() []Submission {
	return []Submission{
		{ID: "s1", Status: "verified", DeliveryMethod: "pickup"},
		{ID: "s2", Status: "rejected", DeliveryMethod: "dropoff"},
		{ID: "s3", Status: "pending"},
	}
}

func TestVerificationStatsFrom(t *testing.T) {
	got, err := VerificationStatsFrom(threeSubmissions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := VerificationStats{TotalSubmissions: 3, Verified: 1, Rejected: 1, PendingVerifications: 1}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestVerificationStatsStatuses(t *testing.T) {
	tests := []struct {
		status                      string
		verified, rejected, pending int
	}{
		{"verified", 1, 0, 0},
		{"approved", 1, 0, 0},
		{"rejected", 0, 1, 0},
		{"pending", 0, 0, 1},
		{"", 0, 0, 1},
		{"in_review", 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got, err := VerificationStatsFrom([]Submission{{ID: "x", Status: tt.status}})
			if err != nil {
				t.Fatal(err)
			}
			if got.Verified != tt.verified || got.Rejected != tt.rejected || got.PendingVerifications != tt.pending {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestVerificationStatsEmpty(t *testing.T) {
	got, err := VerificationStatsFrom(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != (VerificationStats{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}

func TestVerificationStatsMissingID(t *testing.T) {
	_, err := VerificationStatsFrom([]Submission{{Status: "verified"}})
	if !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestSubmissionListFrom(t *testing.T) {
	got, err := SubmissionListFrom(threeSubmissions())
	if err != nil {
		t.Fatal(err)
	}
	if got.Total != 3 || len(got.Submissions) != 3 {
		t.Fatalf("total = %d, len = %d", got.Total, len(got.Submissions))
	}
	if got.ByStatus["verified"] != 1 || got.ByStatus["rejected"] != 1 || got.ByStatus["pending"] != 1 {
		t.Fatalf("byStatus = %v", got.ByStatus)
	}
	wantMethods := map[string]int{"pickup": 1, "dropoff": 1, UnspecifiedDelivery: 1}
	for k, v := range wantMethods {
		if got.ByDeliveryMethod[k] != v {
			t.Fatalf("byDeliveryMethod[%s] = %d, want %d", k, got.ByDeliveryMethod[k], v)
		}
	}
}

func TestSubmissionListEmptyIsNotNull(t *testing.T) {
	got, err := SubmissionListFrom(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Submissions == nil || got.ByStatus == nil || got.ByDeliveryMethod == nil {
		t.Fatal("expected empty, non-nil collections")
	}
}

func TestWarehouseStatsFrom(t *testing.T) {
	items := []InventoryItem{
		{ID: "i1", MaterialType: "pet", WeightKg: 120.5, Status: "stored"},
		{ID: "i2", MaterialType: "pet", WeightKg: 80, Status: "reserved"},
		{ID: "i3", MaterialType: "aluminium", WeightKg: 40, Status: "stored"},
	}
	got, err := WarehouseStatsFrom("w1", items)
	if err != nil {
		t.Fatal(err)
	}
	if got.WarehouseID != "w1" || got.TotalItems != 3 {
		t.Fatalf("got %+v", got)
	}
	if got.TotalWeightKg != 240.5 {
		t.Fatalf("totalWeightKg = %v, want 240.5", got.TotalWeightKg)
	}
	if got.ByMaterialType["pet"] != 2 || got.ByMaterialType["aluminium"] != 1 {
		t.Fatalf("byMaterialType = %v", got.ByMaterialType)
	}
	if got.ByStatus["stored"] != 2 || got.ByStatus["reserved"] != 1 {
		t.Fatalf("byStatus = %v", got.ByStatus)
	}
}

func TestWarehouseStatsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		items []InventoryItem
	}{
		{"negative weight", []InventoryItem{{ID: "i1", WeightKg: -1}}},
		{"missing id", []InventoryItem{{MaterialType: "pet", WeightKg: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := WarehouseStatsFrom("w1", tt.items); !errors.Is(err, domain.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name           string
		in             PriceRecommendation
		wantBid        float64
		wantMin        float64
		wantNormalized bool
	}{
		{"ordered", PriceRecommendation{MaterialType: "pet", SuggestedBid: 0.42, MinAcceptable: 0.30}, 0.42, 0.30, false},
		{"equal", PriceRecommendation{MaterialType: "pet", SuggestedBid: 0.30, MinAcceptable: 0.30}, 0.30, 0.30, false},
		{"reversed", PriceRecommendation{MaterialType: "pet", SuggestedBid: 0.30, MinAcceptable: 0.42}, 0.42, 0.30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePrice(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got.SuggestedBid != tt.wantBid || got.MinAcceptable != tt.wantMin || got.Normalized != tt.wantNormalized {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestNormalizePriceMalformed(t *testing.T) {
	if _, err := NormalizePrice(PriceRecommendation{SuggestedBid: 1}); !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("missing material type: expected ErrMalformed, got %v", err)
	}
	if _, err := NormalizePrice(PriceRecommendation{MaterialType: "pet", SuggestedBid: -1}); !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("negative bid: expected ErrMalformed, got %v", err)
	}
}
