package models

import (
	"math"
	"strings"

	dErrors "bloodlink/pkg/domain-errors"
)

// RegisterRequest carries the fields needed to register a donor.
// Coordinates are pointers so that 0 can be told apart from missing.
type RegisterRequest struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Gender     string   `json:"gender"`
	Location   string   `json:"location"`
	State      string   `json:"state"`
	BloodGroup string   `json:"blood_group"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// Normalize trims text fields and canonicalises codes.
func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Gender = strings.ToUpper(strings.TrimSpace(r.Gender))
	r.Location = strings.TrimSpace(r.Location)
	r.State = strings.TrimSpace(r.State)
	r.BloodGroup = strings.ToUpper(strings.TrimSpace(r.BloodGroup))
}

// Validate checks required fields and ranges.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 255 {
		return dErrors.New(dErrors.CodeValidation, "name must be 255 characters or less")
	}
	if r.Age <= 0 || r.Age > 130 {
		return dErrors.New(dErrors.CodeValidation, "age must be between 1 and 130")
	}
	if !Gender(r.Gender).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "gender must be one of M, F, O")
	}
	if r.Location == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	if _, err := ParseBloodGroup(r.BloodGroup); err != nil {
		return err
	}
	if err := ValidateCoordinates(r.Latitude, r.Longitude); err != nil {
		return err
	}
	return nil
}

// ValidateCoordinates requires both coordinates and keeps them on the globe.
func ValidateCoordinates(lat, lon *float64) error {
	if lat == nil || lon == nil {
		return dErrors.New(dErrors.CodeValidation, "latitude and longitude are required")
	}
	if math.IsNaN(*lat) || *lat < -90 || *lat > 90 {
		return dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if math.IsNaN(*lon) || *lon < -180 || *lon > 180 {
		return dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
	}
	return nil
}
