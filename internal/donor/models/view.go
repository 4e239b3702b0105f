package models

// DonorView is the JSON representation of a donor, with dates rendered as
// YYYY-MM-DD.
type DonorView struct {
	ID             int64      `json:"donor_id"`
	Name           string     `json:"name"`
	Age            int        `json:"age"`
	Gender         Gender     `json:"gender"`
	Location       string     `json:"location"`
	State          string     `json:"state"`
	BloodGroup     BloodGroup `json:"blood_group"`
	TotalDonations int        `json:"total_donations"`
	LastDonation   *string    `json:"last_donation"`
	IsActive       bool       `json:"is_active"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
}

func (d *Donor) View() DonorView {
	v := DonorView{
		ID:             d.ID,
		Name:           d.Name,
		Age:            d.Age,
		Gender:         d.Gender,
		Location:       d.Location,
		State:          d.State,
		BloodGroup:     d.BloodGroup,
		TotalDonations: d.TotalDonations,
		IsActive:       d.IsActive,
		Latitude:       d.Latitude,
		Longitude:      d.Longitude,
	}
	if d.LastDonation != nil {
		last := FormatDate(*d.LastDonation)
		v.LastDonation = &last
	}
	return v
}
