// Package snapshot defines the raw upstream records and the derived views
// the gateway computes from them on every cache miss.
package snapshot

// Submission is a material submission as listed by the marketplace backend.
// Only the fields below are decoded; anything else upstream sends is dropped.
type Submission struct {
	ID             string  `json:"id"`
	SupplierID     string  `json:"supplierId,omitempty"`
	MaterialType   string  `json:"materialType,omitempty"`
	WeightKg       float64 `json:"weightKg,omitempty"`
	Status         string  `json:"status"`
	DeliveryMethod string  `json:"deliveryMethod,omitempty"`
	CreatedAt      string  `json:"createdAt,omitempty"`
}

// InventoryItem is one stock line of a warehouse.
type InventoryItem struct {
	ID           string  `json:"id"`
	MaterialType string  `json:"materialType"`
	WeightKg     float64 `json:"weightKg"`
	Status       string  `json:"status"`
}

// UserProfile is the user service's profile record, decoded into the known
// fields below. Fields the user service adds later are dropped until listed here.
type UserProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
	Verified     bool   `json:"verified"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// PriceRecommendation is the pricing service's bid guidance for one material.
type PriceRecommendation struct {
	MaterialType  string  `json:"materialType"`
	SuggestedBid  float64 `json:"suggestedBid"`
	MinAcceptable float64 `json:"minAcceptable"`
	Currency      string  `json:"currency"`
	Normalized    bool    `json:"normalized"` // bounds arrived reversed and were swapped
}
