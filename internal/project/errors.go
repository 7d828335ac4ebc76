package project

import "errors"

var (
	// ErrAreaNotFound is returned when an area ID does not exist, including
	// when a handle is used after its area was deleted.
	ErrAreaNotFound = errors.New("area not found")

	// ErrStreetNotFound is returned when a street ID does not exist in the bound area.
	ErrStreetNotFound = errors.New("street not found")

	// ErrAddressNotFound is returned when an address ID does not exist in the bound area.
	ErrAddressNotFound = errors.New("address not found")

	// ErrTeamNotFound is returned when a team ID does not exist in the bound area.
	ErrTeamNotFound = errors.New("team not found")

	// ErrNotAssigned is returned when removing an assignment that does not exist.
	ErrNotAssigned = errors.New("address is not assigned to team")

	// ErrMetadataMissing is returned when a project metadata key has no row.
	ErrMetadataMissing = errors.New("project metadata missing")

	// ErrInvalidImage is returned when an area image cannot be decoded.
	ErrInvalidImage = errors.New("invalid area image")
)

// Validation errors.
var (
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidHouseNumber = errors.New("invalid house number")
	ErrInvalidConfidence  = errors.New("invalid confidence")
	ErrInvalidPolyline    = errors.New("invalid polyline")
	ErrInvalidState       = errors.New("invalid area state")
	ErrInvalidColor       = errors.New("invalid color")
)
