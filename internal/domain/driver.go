package domain

// VehicleClass represents the service class of a driver's vehicle.
type VehicleClass string

const (
	VehicleClassEconomy VehicleClass = "economy"
	VehicleClassComfort VehicleClass = "comfort"
	VehicleClassPremium VehicleClass = "premium"
	VehicleClassXL      VehicleClass = "xl"
)

// Location is a driver's last reported position.
type Location struct {
	Lat float64
	Lng float64
}

// Driver represents a driver profile. The id is the driver's user account id.
// A driver is available for matching iff Online && Approved && Location != nil
// and not already bound to an active ride; acceptance flips Online to false
// while the ride is served.
type Driver struct {
	ID            string
	Name          string
	Phone         string
	LicenseNumber string
	LicensePlate  string
	VehicleModel  string
	VehicleYear   int
	VehicleColor  string
	VehicleClass  VehicleClass
	Online        bool
	Approved      bool
	Location      *Location
	Earnings      Money // cumulative, credited on ride completion
}
