package models

import (
	"fmt"
	"time"

	dErrors "bloodlink/pkg/domain-errors"
)

const (
	// MaxLifetimeDonations retires a donor permanently once reached.
	MaxLifetimeDonations = 5
	// CooldownDays is the minimum gap between donations, and the wait before
	// an inactive donor is reactivated.
	CooldownDays = 90
)

// Donor is the aggregate root for a registered blood donor.
//
// Invariants:
//   - TotalDonations is within [0, MaxLifetimeDonations]
//   - IsActive is false when TotalDonations == MaxLifetimeDonations (retired)
//   - IsActive is false inside the cooldown after a donation
//   - LastDonation is nil until the first recorded donation
//
// Retired and cooling-down donors share IsActive=false and are told apart only
// by TotalDonations.
type Donor struct {
	ID             int64      `json:"donor_id"`
	Name           string     `json:"name"`
	Age            int        `json:"age"`
	Gender         Gender     `json:"gender"`
	Location       string     `json:"location"`
	State          string     `json:"state"`
	BloodGroup     BloodGroup `json:"blood_group"`
	TotalDonations int        `json:"total_donations"`
	LastDonation   *time.Time `json:"last_donation"`
	IsActive       bool       `json:"is_active"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
}

// Gender is the self-reported gender code.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// NewDonor builds a freshly registered donor from validated fields.
func NewDonor(req *RegisterRequest) (*Donor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &Donor{
		Name:       req.Name,
		Age:        req.Age,
		Gender:     Gender(req.Gender),
		Location:   req.Location,
		State:      req.State,
		BloodGroup: BloodGroup(req.BloodGroup),
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		IsActive:   true,
	}, nil
}

// IsRetired reports whether the donor has reached the lifetime cap.
func (d *Donor) IsRetired() bool {
	return d.TotalDonations >= MaxLifetimeDonations
}

// CanDonate checks the lifetime cap, then the cooldown, for a donation on date.
func (d *Donor) CanDonate(date time.Time) error {
	if d.IsRetired() {
		return dErrors.New(dErrors.CodeLifetimeLimit,
			fmt.Sprintf("donor has already donated %d times (lifetime limit)", MaxLifetimeDonations))
	}
	if d.LastDonation != nil && DaysBetween(*d.LastDonation, date) < CooldownDays {
		return dErrors.New(dErrors.CodeCooldown,
			fmt.Sprintf("donor must wait %d days between donations", CooldownDays))
	}
	return nil
}

// ApplyDonation records a donation on date. The donor always enters
// cooldown (or retirement) afterwards. Call CanDonate first.
func (d *Donor) ApplyDonation(date time.Time) {
	day := DateOf(date)
	d.TotalDonations++
	d.LastDonation = &day
	d.IsActive = false
}

// DueForReactivation reports whether an inactive, non-retired donor has
// served the full cooldown as of asOf. Donors that never donated are not due.
func (d *Donor) DueForReactivation(asOf time.Time) bool {
	if d.IsActive || d.IsRetired() || d.LastDonation == nil {
		return false
	}
	return DaysBetween(*d.LastDonation, asOf) >= CooldownDays
}

// ApplyReactivation marks the donor active again.
func (d *Donor) ApplyReactivation() {
	d.IsActive = true
}

// SameEligibility reports whether d and o agree on the fields donations and
// reactivation change.
func (d *Donor) SameEligibility(o *Donor) bool {
	if d.IsActive != o.IsActive || d.TotalDonations != o.TotalDonations {
		return false
	}
	if d.LastDonation == nil || o.LastDonation == nil {
		return d.LastDonation == nil && o.LastDonation == nil
	}
	return DateOf(*d.LastDonation).Equal(DateOf(*o.LastDonation))
}

// Clone returns a deep copy.
func (d *Donor) Clone() *Donor {
	if d == nil {
		return nil
	}
	c := *d
	if d.LastDonation != nil {
		last := *d.LastDonation
		c.LastDonation = &last
	}
	return &c
}
