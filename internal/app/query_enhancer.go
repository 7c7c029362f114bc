package app

import (
	"strings"

	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

const (
	VehicleCar        = "car"
	VehicleMotorcycle = "motorcycle"
)

// EnhanceQuery appends profile hints that pull retrieval towards the matching
// product documents. A nil profile leaves the query untouched.
func EnhanceQuery(query string, profile *model.UserProfile) string {
	if profile == nil {
		return query
	}

	parts := []string{query}
	switch profile.VehicleType {
	case VehicleCar:
		parts = append(parts, "mobil autocillin")
	case VehicleMotorcycle:
		parts = append(parts, "motor motopro")
	}
	if profile.City == "jakarta" && profile.FloodRisk {
		parts = append(parts, "banjir flood")
	}
	if profile.UsageType == "daily" {
		parts = append(parts, "harian sehari-hari")
	}
	return strings.Join(parts, " ")
}
