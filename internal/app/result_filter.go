package app

import "strings"

// KeepForVehicle reports whether a chunk from fileName titled title suits a user
// with the given vehicle type. Unknown or empty vehicle types keep everything.
func KeepForVehicle(fileName, title, vehicleType string) bool {
	file := strings.ToLower(fileName)
	t := strings.ToLower(title)

	switch vehicleType {
	case VehicleCar:
		return !(strings.Contains(file, "motolite") || strings.Contains(file, "motopro") || strings.Contains(t, "motor"))
	case VehicleMotorcycle:
		return !(strings.Contains(file, "autocillin") || strings.Contains(t, "mobil"))
	default:
		return true
	}
}
