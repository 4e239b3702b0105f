package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bloodlink/pkg/domain-errors"
)

func sessionWith(n int) *Session {
	s := &Session{ID: "s1"}
	for i := 1; i <= n; i++ {
		s.Matches = append(s.Matches, Match{DonorID: int64(i)})
	}
	return s
}

func TestAdvanceWithTwentyFiveMatches(t *testing.T) {
	s := sessionWith(25)

	first := s.Advance()
	assert.Equal(t, 1, first.From)
	assert.Equal(t, 10, first.To)
	assert.Len(t, first.Matches, 10)
	assert.Equal(t, int64(1), first.Matches[0].DonorID)
	assert.True(t, first.HasMore)

	second := s.Advance()
	assert.Equal(t, 11, second.From)
	assert.Equal(t, 25, second.To)
	require.Len(t, second.Matches, 15)
	assert.Equal(t, int64(11), second.Matches[0].DonorID)
	assert.Equal(t, int64(25), second.Matches[14].DonorID)
	assert.False(t, second.HasMore)
	assert.Equal(t, 25, second.Total)

	third := s.Advance()
	assert.Empty(t, third.Matches)
	assert.Zero(t, third.From)
	assert.False(t, third.HasMore)
}

func TestPageSizeStaysFiftyAfterFirstMore(t *testing.T) {
	s := sessionWith(200)

	assert.Len(t, s.Advance().Matches, 10)
	p := s.Advance()
	assert.Equal(t, 11, p.From)
	assert.Equal(t, 60, p.To)
	p = s.Advance()
	assert.Equal(t, 61, p.From)
	assert.Equal(t, 110, p.To)
	assert.Equal(t, MorePageSize, s.NextPageSize())
}

func TestAdvanceFewerThanFirstPage(t *testing.T) {
	s := sessionWith(3)
	p := s.Advance()
	assert.Equal(t, 1, p.From)
	assert.Equal(t, 3, p.To)
	assert.False(t, p.HasMore)
	assert.True(t, s.Exhausted())
}

func TestSearchRequestValidate(t *testing.T) {
	lat, lon := 28.6139, 77.2090

	req := &SearchRequest{BloodGroup: " o+ ", Latitude: &lat, Longitude: &lon}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, "O+", req.BloodGroup)

	bad := &SearchRequest{BloodGroup: "Q+", Latitude: &lat, Longitude: &lon}
	assert.True(t, dErrors.HasCode(bad.Validate(), dErrors.CodeValidation))

	missing := &SearchRequest{BloodGroup: "O+"}
	assert.True(t, dErrors.HasCode(missing.Validate(), dErrors.CodeValidation))
}
