package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"bloodlink/internal/donor/handler/mocks"
	"bloodlink/internal/donor/models"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

type DonorHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestDonorHandlerSuite(t *testing.T) {
	suite.Run(t, new(DonorHandlerSuite))
}

func (s *DonorHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func day(v string) time.Time {
	t, err := time.Parse(models.DateLayout, v)
	if err != nil {
		panic(err)
	}
	return t
}

func registerBody() map[string]any {
	return map[string]any{
		"name":        "Sana",
		"age":         27,
		"gender":      "F",
		"location":    "Hyderabad",
		"state":       "Telangana",
		"blood_group": "b-",
		"latitude":    17.385,
		"longitude":   78.4867,
	}
}

func (s *DonorHandlerSuite) TestRegister() {
	s.Run("returns 201 with the new id", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, req *models.RegisterRequest) (int64, error) {
				s.Equal("B-", req.BloodGroup)
				return 41, nil
			})

		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/donors", registerBody()))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.Equal(int64(41), testutil.DecodeJSON[RegisterResponse](s.T(), rr).DonorID)
	})

	s.Run("rejects invalid input before reaching the service", func() {
		body := registerBody()
		delete(body, "latitude")
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/donors", body))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("malformed json is a bad request", func() {
		rr := testutil.Serve(s.router, testutil.RawRequest(s.T(), http.MethodPost, "/donors", "{"))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("storage failure hides the description", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(int64(0), dErrors.New(dErrors.CodeUnavailable, "failed to register donor"))
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/donors", registerBody()))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
		s.NotContains(rr.Body.String(), "error_description")
	})
}

func (s *DonorHandlerSuite) TestGetDonor() {
	s.Run("renders dates as calendar days", func() {
		last := day("2024-05-20")
		s.service.EXPECT().GetDonor(gomock.Any(), int64(8)).Return(&models.Donor{
			ID:             8,
			Name:           "Tara",
			BloodGroup:     models.BloodGroupANeg,
			TotalDonations: 2,
			LastDonation:   &last,
		}, nil)

		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/donors/8", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		view := testutil.DecodeJSON[models.DonorView](s.T(), rr)
		s.Require().NotNil(view.LastDonation)
		s.Equal("2024-05-20", *view.LastDonation)
		s.Equal(2, view.TotalDonations)
	})

	s.Run("unknown donor is 404", func() {
		s.service.EXPECT().GetDonor(gomock.Any(), int64(9)).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "donor not found"))
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/donors/9", nil))
		testutil.AssertError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("non-numeric id is a bad request", func() {
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/donors/abc", nil))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *DonorHandlerSuite) TestRecordDonation() {
	s.Run("passes the parsed date and returns the donor", func() {
		s.service.EXPECT().RecordDonation(gomock.Any(), int64(3), day("2024-07-01"), "Red Cross").
			Return(&models.Donor{ID: 3, TotalDonations: 1, LastDonation: ptr(day("2024-07-01"))}, nil)

		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/donors/3/donations",
			map[string]string{"donation_date": "2024-07-01", "location": " Red Cross "}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		view := testutil.DecodeJSON[models.DonorView](s.T(), rr)
		s.False(view.IsActive)
		s.Equal(1, view.TotalDonations)
	})

	s.Run("ineligible donors get 409 with the rule code", func() {
		for _, code := range []dErrors.Code{dErrors.CodeCooldown, dErrors.CodeLifetimeLimit} {
			s.service.EXPECT().RecordDonation(gomock.Any(), int64(3), gomock.Any(), gomock.Any()).
				Return(nil, dErrors.New(code, "ineligible"))
			rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/donors/3/donations",
				map[string]string{"donation_date": "2024-07-01", "location": "Camp"}))
			testutil.AssertError(s.T(), rr, http.StatusConflict, string(code))
		}
	})

	s.Run("bad date is a validation error", func() {
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/donors/3/donations",
			map[string]string{"donation_date": "01/07/2024", "location": "Camp"}))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *DonorHandlerSuite) TestReactivate() {
	s.Run("defaults to the request date", func() {
		now := time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC)
		s.service.EXPECT().ReactivateEligible(gomock.Any(), day("2025-01-15")).Return(4, nil)

		req := testutil.WithRequestTime(testutil.JSONRequest(s.T(), http.MethodPost, "/donors/reactivations", nil), now)
		rr := testutil.Serve(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.DecodeJSON[ReactivationResponse](s.T(), rr)
		s.Equal(4, resp.Reactivated)
		s.Equal("2025-01-15", resp.AsOf)
	})

	s.Run("honours an explicit as_of", func() {
		s.service.EXPECT().ReactivateEligible(gomock.Any(), day("2024-12-31")).Return(0, nil)
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/donors/reactivations",
			map[string]string{"as_of": "2024-12-31"}))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})
}

func ptr[T any](v T) *T { return &v }
