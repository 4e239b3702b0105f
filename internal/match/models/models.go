package models

import (
	"strings"
	"time"

	donormodels "bloodlink/internal/donor/models"
	dErrors "bloodlink/pkg/domain-errors"
)

const (
	// FirstPageSize is the size of the first page of a search.
	FirstPageSize = 10
	// MorePageSize is the size of every page after the first.
	MorePageSize = 50
)

// SearchRequest describes who needs blood, where, and of which group.
type SearchRequest struct {
	Location   string   `json:"location"`
	State      string   `json:"state"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	BloodGroup string   `json:"blood_group"`
}

func (r *SearchRequest) Normalize() {
	if r == nil {
		return
	}
	r.Location = strings.TrimSpace(r.Location)
	r.State = strings.TrimSpace(r.State)
	r.BloodGroup = strings.ToUpper(strings.TrimSpace(r.BloodGroup))
}

func (r *SearchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if _, err := donormodels.ParseBloodGroup(r.BloodGroup); err != nil {
		return err
	}
	return donormodels.ValidateCoordinates(r.Latitude, r.Longitude)
}

// Requester is the validated origin of a search.
type Requester struct {
	Location   string                 `json:"location"`
	State      string                 `json:"state"`
	Latitude   float64                `json:"latitude"`
	Longitude  float64                `json:"longitude"`
	BloodGroup donormodels.BloodGroup `json:"blood_group"`
}

// Match is one ranked candidate donor.
type Match struct {
	DonorID    int64                  `json:"donor_id"`
	Name       string                 `json:"name"`
	Location   string                 `json:"location"`
	State      string                 `json:"state"`
	BloodGroup donormodels.BloodGroup `json:"blood_group"`
	DistanceKm float64                `json:"distance_km"`
}

// Session holds a ranked result set while the caller pages through it.
type Session struct {
	ID          string    `json:"id"`
	Requester   Requester `json:"requester"`
	Matches     []Match   `json:"matches"`
	Offset      int       `json:"offset"`
	PagesServed int       `json:"pages_served"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Page is a window over a session's matches. From and To are 1-based and
// inclusive; both are zero for an empty page.
type Page struct {
	SessionID string    `json:"session_id,omitempty"`
	Requester Requester `json:"requester"`
	Total     int       `json:"total"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Matches   []Match   `json:"matches"`
	HasMore   bool      `json:"has_more"`
}

// NextPageSize is 10 for the first page and 50 for every later one.
func (s *Session) NextPageSize() int {
	if s.PagesServed == 0 {
		return FirstPageSize
	}
	return MorePageSize
}

// Exhausted reports whether every match has been shown.
func (s *Session) Exhausted() bool {
	return s.Offset >= len(s.Matches)
}

// Advance returns the next page and moves the offset past it.
func (s *Session) Advance() Page {
	size := s.NextPageSize()
	start := min(s.Offset, len(s.Matches))
	end := min(start+size, len(s.Matches))

	page := Page{
		SessionID: s.ID,
		Requester: s.Requester,
		Total:     len(s.Matches),
		Matches:   append([]Match{}, s.Matches[start:end]...),
	}
	if end > start {
		page.From = start + 1
		page.To = end
	}
	s.Offset = end
	s.PagesServed++
	page.HasMore = !s.Exhausted()
	return page
}
