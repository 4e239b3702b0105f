package handler

type RegisterResponse struct {
	DonorID int64 `json:"donor_id"`
}

type ReactivationResponse struct {
	AsOf        string `json:"as_of"`
	Reactivated int    `json:"reactivated"`
}
