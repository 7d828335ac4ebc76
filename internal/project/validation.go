package project

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength        = 100
	maxHouseNumberLength = 20
	minPolylinePoints    = 2
	minBoundaryPoints    = 3
)

// ValidateName checks an area or project name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateHouseNumber checks a house number such as "42" or "12a".
func ValidateHouseNumber(hn string) error {
	hn = strings.TrimSpace(hn)
	if hn == "" {
		return fmt.Errorf("%w: house number cannot be empty", ErrInvalidHouseNumber)
	}
	if utf8.RuneCountInString(hn) > maxHouseNumberLength {
		return fmt.Errorf("%w: house number exceeds %d characters", ErrInvalidHouseNumber, maxHouseNumberLength)
	}
	return nil
}

// ValidateConfidence checks a detection confidence lies in [0, 1].
func ValidateConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("%w: %v not in [0, 1]", ErrInvalidConfidence, c)
	}
	return nil
}

// ValidatePolyline checks a street course has at least two vertices.
func ValidatePolyline(points []Point) error {
	if len(points) < minPolylinePoints {
		return fmt.Errorf("%w: street needs at least %d points, got %d",
			ErrInvalidPolyline, minPolylinePoints, len(points))
	}
	return nil
}

// ValidateBoundary checks a team polygon has at least three vertices.
func ValidateBoundary(points []Point) error {
	if len(points) < minBoundaryPoints {
		return fmt.Errorf("%w: boundary needs at least %d points, got %d",
			ErrInvalidPolyline, minBoundaryPoints, len(points))
	}
	return nil
}

func validateNewAddress(a NewAddress) error {
	if err := ValidateHouseNumber(a.HouseNumber); err != nil {
		return err
	}
	return ValidateConfidence(a.Confidence)
}

func validateAddressUpdate(u AddressUpdate) error {
	if u.HouseNumber != nil {
		if err := ValidateHouseNumber(*u.HouseNumber); err != nil {
			return err
		}
	}
	if u.Confidence != nil {
		return ValidateConfidence(*u.Confidence)
	}
	return nil
}
