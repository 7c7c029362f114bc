package model

// UserProfile is the optional request-scoped description of the asking user.
// Unknown fields in the request body are ignored.
type UserProfile struct {
	VehicleType string `json:"vehicleType"`
	City        string `json:"city"`
	FloodRisk   bool   `json:"floodRisk"`
	UsageType   string `json:"usageType"`
}
