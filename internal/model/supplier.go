// Package model defines the supplier, warehouse, and ranking data types
// shared across the pipeline.
package model

// Features is the canonical feature-vector column order consumed by the
// failure classifier. Changing the order invalidates persisted models.
var Features = []string{"LeadTimeDays", "PastReliability", "Capacity", "WeatherRisk", "WarRisk"}

// SupplierRecord is one row per (supplier, product) combination. The csv
// tags define the persisted enriched-table columns; scoring columns are
// query-time only and never hit disk.
type SupplierRecord struct {
	ProductID    string `csv:"ProductID" json:"product_id"`
	Product      string `csv:"Product" json:"product"`
	Category     string `csv:"Category" json:"category"`
	SupplierID   string `csv:"SupplierID" json:"supplier_id"`
	SupplierName string `csv:"SupplierName" json:"supplier_name"`

	City      string  `csv:"City" json:"city"`
	Country   string  `csv:"Country" json:"country"`
	Latitude  float64 `csv:"Latitude" json:"latitude"`
	Longitude float64 `csv:"Longitude" json:"longitude"`

	LeadTimeDays    float64 `csv:"LeadTimeDays" json:"lead_time_days"`
	PastReliability float64 `csv:"PastReliability" json:"past_reliability"`
	Capacity        float64 `csv:"Capacity" json:"capacity"`

	// Derived during enrichment.
	WeatherRisk float64 `csv:"WeatherRisk" json:"weather_risk"`
	WarRisk     float64 `csv:"WarRisk" json:"war_risk"`
	Failure     int     `csv:"Failure" json:"failure"`

	// Derived at query time, never persisted.
	FailureProb   float64 `csv:"-" json:"failure_prob"`
	DistanceKM    float64 `csv:"-" json:"distance_km"`
	RiskNorm      float64 `csv:"-" json:"risk_norm"`
	DistNorm      float64 `csv:"-" json:"dist_norm"`
	CombinedScore float64 `csv:"-" json:"combined_score"`
}

// FeatureVector returns the classifier inputs in canonical Features order.
func (r *SupplierRecord) FeatureVector() []float64 {
	return []float64{
		r.LeadTimeDays,
		r.PastReliability,
		r.Capacity,
		r.WeatherRisk,
		r.WarRisk,
	}
}

// Warehouse is a distribution-center candidate location.
type Warehouse struct {
	City      string  `csv:"City" json:"city"`
	Country   string  `csv:"Country" json:"country"`
	Latitude  float64 `csv:"Latitude" json:"latitude"`
	Longitude float64 `csv:"Longitude" json:"longitude"`
}

// Location is a resolved distribution-center reference point.
type Location struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
