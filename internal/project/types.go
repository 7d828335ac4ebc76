package project

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Point is a pixel coordinate on an area image.
type Point struct {
	X uint32
	Y uint32
}

// pointFromColumns converts stored coordinates. The schema constrains both
// columns to the uint32 range, so anything else means the database file
// was altered outside this package.
func pointFromColumns(x, y int64) Point {
	if x < 0 || x > math.MaxUint32 || y < 0 || y > math.MaxUint32 {
		panic(fmt.Sprintf("project: stored coordinate (%d, %d) outside uint32 range", x, y))
	}
	return Point{X: uint32(x), Y: uint32(y)}
}

// Color is an RGB color. It is stored packed as 0xRRGGBB.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Packed returns the color as 0xRRGGBB.
func (c Color) Packed() int64 {
	return int64(c.R)<<16 | int64(c.G)<<8 | int64(c.B)
}

// ColorFromPacked unpacks a 0xRRGGBB value. Bits above 24 are ignored.
func ColorFromPacked(v int64) Color {
	return Color{
		R: uint8(v >> 16 & 0xff),
		G: uint8(v >> 8 & 0xff),
		B: uint8(v & 0xff),
	}
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHexColor parses "#rrggbb" or "rrggbb".
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("%w: %q is not #rrggbb", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q is not #rrggbb", ErrInvalidColor, s)
	}
	return ColorFromPacked(int64(v)), nil
}

// AreaState tracks how far an area has progressed through the canvassing
// workflow. Any state may be set at any time.
type AreaState uint8

// Area states in workflow order.
const (
	StateImported AreaState = iota
	StateAddressesDetected
	StateAddressesCorrected
	StateStreetsDetected
	StateStreetsCorrected
	StateAddressesAssigned
	StateFlatsEstimated
	StateTeamsAssigned
	StateComplete
)

var areaStateNames = [...]string{
	StateImported:           "imported",
	StateAddressesDetected:  "addresses_detected",
	StateAddressesCorrected: "addresses_corrected",
	StateStreetsDetected:    "streets_detected",
	StateStreetsCorrected:   "streets_corrected",
	StateAddressesAssigned:  "addresses_assigned",
	StateFlatsEstimated:     "flats_estimated",
	StateTeamsAssigned:      "teams_assigned",
	StateComplete:           "complete",
}

// String returns the snake_case name of the state.
func (s AreaState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("AreaState(%d)", uint8(s))
	}
	return areaStateNames[s]
}

// Valid reports whether s is one of the defined states.
func (s AreaState) Valid() bool {
	return int(s) < len(areaStateNames)
}

// Next returns the following workflow state. Complete has no successor.
func (s AreaState) Next() (AreaState, bool) {
	if s >= StateComplete {
		return s, false
	}
	return s + 1, true
}

// ParseAreaState parses a name produced by String.
func ParseAreaState(name string) (AreaState, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range areaStateNames {
		if candidate == n {
			return AreaState(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidState, name)
}

func areaStateFromColumn(v int64) (AreaState, error) {
	if v < 0 || v >= int64(len(areaStateNames)) {
		return 0, fmt.Errorf("%w: stored value %d", ErrInvalidState, v)
	}
	return AreaState(v), nil
}

// Settings holds the project-wide metadata.
type Settings struct {
	Name               string
	CreatedAt          time.Time
	TargetAddressCount uint64
}

// SettingsUpdate changes the named settings and leaves nil ones alone.
type SettingsUpdate struct {
	Name               *string
	TargetAddressCount *uint64
	CreatedAt          *time.Time
}

// Area is one map region of the campaign.
type Area struct {
	ID        int64
	Name      string
	Color     Color
	State     AreaState
	ImageName string
}

// NewArea describes an area to create. ImagePath is copied into the project.
// Name is stored as given; surrounding whitespace only counts against it
// during validation.
type NewArea struct {
	Name      string
	Color     Color
	ImagePath string
}

// AreaUpdate changes the named fields and leaves nil ones alone.
type AreaUpdate struct {
	Name  *string
	Color *Color
	State *AreaState
}

// Street is a street detected or drawn in an area. Name is nil until known.
type Street struct {
	ID       int64
	AreaID   int64
	Name     *string
	Verified bool
}

// NewStreet describes a street to create. The zero value is an unnamed,
// unverified street.
type NewStreet struct {
	Name     *string
	Verified bool
}

// StreetUpdate changes the named fields. Name can be cleared with Null.
type StreetUpdate struct {
	Name     Field[string]
	Verified *bool
}

// StreetPolyline is the drawn course of a street, in vertex order.
type StreetPolyline struct {
	StreetID int64
	Points   []Point
}

// Address is a house number located on an area image.
type Address struct {
	ID             int64
	AreaID         int64
	HouseNumber    string
	Position       Point
	Confidence     float64
	Verified       bool
	EstimatedFlats *uint16
	CircleRadius   *uint32
	StreetID       *int64
}

// NewAddress describes an address to create.
type NewAddress struct {
	HouseNumber    string
	Position       Point
	Confidence     float64
	Verified       bool
	EstimatedFlats *uint16
	CircleRadius   *uint32
	StreetID       *int64
}

// AddressUpdate changes the named fields. Nullable columns use Field so
// they can be cleared.
type AddressUpdate struct {
	HouseNumber    *string
	Position       *Point
	Confidence     *float64
	Verified       *bool
	EstimatedFlats Field[uint16]
	CircleRadius   Field[uint32]
	StreetID       Field[int64]
}

// Team is a canvassing team. Number is unique within its area.
type Team struct {
	ID     int64
	AreaID int64
	Number uint16
}

// TeamBounds is the polygon a team covers, in vertex order.
type TeamBounds struct {
	TeamID int64
	Points []Point
}

// TeamAddress is one address on a team's list, with its street name when known.
type TeamAddress struct {
	AddressID   int64
	StreetID    *int64
	StreetName  *string
	HouseNumber string
}
