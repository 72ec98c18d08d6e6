package service

import "errors"

var (
	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidActorID is returned when the requesting user ID is empty.
	ErrInvalidActorID = errors.New("invalid user id")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDestinationLocation is returned when destination coordinates are invalid.
	ErrInvalidDestinationLocation = errors.New("invalid destination location")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrNotRideParty is returned when the actor is neither the ride's rider
	// nor its driver.
	ErrNotRideParty = errors.New("not a party to this ride")

	// ErrDriverNotEligible is returned when a driver is not approved, not
	// online, or has no profile.
	ErrDriverNotEligible = errors.New("driver is not approved or not online")

	// ErrDriverNotApproved is returned when an unapproved driver tries to go online.
	ErrDriverNotApproved = errors.New("driver profile is not approved yet")

	// ErrRideAlreadyTaken is returned when the conditional claim affected zero
	// rows: another driver won the race.
	ErrRideAlreadyTaken = errors.New("ride no longer available")

	// ErrRiderHasActiveRide is returned when the rider already has a
	// non-terminal ride.
	ErrRiderHasActiveRide = errors.New("rider already has an active ride")

	// ErrDriverHasActiveRide is returned when the driver is already bound to
	// an active ride.
	ErrDriverHasActiveRide = errors.New("driver already has an active ride")

	// ErrInvalidTransition is returned when the target status is not a legal
	// successor of the ride's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDriverAlreadyRegistered is returned when the license number or plate
	// is already registered.
	ErrDriverAlreadyRegistered = errors.New("driver already registered")

	// ErrStoreUnavailable is returned when the record store fails on the
	// authoritative write path.
	ErrStoreUnavailable = errors.New("record store unavailable")
)
