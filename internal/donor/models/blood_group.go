package models

import (
	"strings"

	dErrors "bloodlink/pkg/domain-errors"
)

// BloodGroup is an ABO/Rh type.
type BloodGroup string

const (
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
)

// BloodGroups lists the canonical groups in display order.
var BloodGroups = []BloodGroup{
	BloodGroupOPos, BloodGroupONeg,
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
}

// IsValid reports whether g is one of the eight canonical groups.
func (g BloodGroup) IsValid() bool {
	switch g {
	case BloodGroupOPos, BloodGroupONeg,
		BloodGroupAPos, BloodGroupANeg,
		BloodGroupBPos, BloodGroupBNeg,
		BloodGroupABPos, BloodGroupABNeg:
		return true
	}
	return false
}

func (g BloodGroup) String() string {
	return string(g)
}

// ParseBloodGroup trims and upper-cases s, then requires a canonical group.
func ParseBloodGroup(s string) (BloodGroup, error) {
	g := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if g == "" {
		return "", dErrors.New(dErrors.CodeValidation, "blood_group is required")
	}
	if !g.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "blood_group must be one of O+, O-, A+, A-, B+, B-, AB+, AB-")
	}
	return g, nil
}
