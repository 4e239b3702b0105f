package handler

import (
	"strings"
	"time"

	"bloodlink/internal/donor/models"
	dErrors "bloodlink/pkg/domain-errors"
)

// RecordDonationRequest is the body of POST /donors/{id}/donations.
type RecordDonationRequest struct {
	DonationDate string `json:"donation_date"`
	Location     string `json:"location"`

	date time.Time
}

func (r *RecordDonationRequest) Normalize() {
	r.DonationDate = strings.TrimSpace(r.DonationDate)
	r.Location = strings.TrimSpace(r.Location)
}

func (r *RecordDonationRequest) Validate() error {
	date, err := models.ParseDate("donation_date", r.DonationDate)
	if err != nil {
		return err
	}
	if r.Location == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	r.date = date
	return nil
}

// ReactivateRequest is the optional body of POST /donors/reactivations. An
// empty AsOf means the request date.
type ReactivateRequest struct {
	AsOf string `json:"as_of"`

	asOf *time.Time
}

func (r *ReactivateRequest) Normalize() {
	r.AsOf = strings.TrimSpace(r.AsOf)
}

func (r *ReactivateRequest) Validate() error {
	if r.AsOf == "" {
		return nil
	}
	asOf, err := models.ParseDate("as_of", r.AsOf)
	if err != nil {
		return err
	}
	r.asOf = &asOf
	return nil
}
