package dto_test

import (
	"net/http/httptest"
	"testing"

	"stayhub/internal/domains/listing/model"
	"stayhub/internal/domains/listing/model/dto"
	"stayhub/internal/domains/listing/search"
	gModel "stayhub/shared/model"
	"stayhub/shared/timezone"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateListingRequest_ToModel(t *testing.T) {
	req := dto.CreateListingRequest{
		Title:            "  Cozy Apartment ",
		Description:      "Two bedrooms near the ridge",
		Kind:             model.KindHome,
		Location:         "Tagaytay City",
		BaseRate:         1500,
		DiscountPercent:  10,
		Bedrooms:         2,
		Bathrooms:        1.5,
		MaxGuests:        4,
		UnavailableDates: []string{"2024-06-12", "2024-06-10", "2024-06-12"},
	}

	listing := req.ToModel("host-1", "https://cdn.example.com/listing/a.png")

	assert.NotEmpty(t, listing.ID)
	assert.Equal(t, "host-1", listing.HostID)
	assert.Equal(t, "Cozy Apartment", listing.Title)
	assert.Equal(t, model.StatusDraft, listing.Status)
	assert.False(t, listing.Archived)
	assert.Empty(t, listing.Province)
	assert.Nil(t, listing.Latitude)
	assert.Equal(t, pq.StringArray{"2024-06-10", "2024-06-12"}, listing.UnavailableDates)
	assert.Equal(t, "host-1", listing.CreatedBy)
	assert.False(t, listing.CreatedAt.IsZero())
}

func TestListingResponse_FromModel(t *testing.T) {
	now := timezone.Now()
	lat, lng := 14.1, 120.9

	listing := model.Listing{
		ID:               "listing-1",
		HostID:           "host-1",
		Title:            "Beach Villa",
		Kind:             model.KindHome,
		Location:         "Nasugbu",
		Province:         "Batangas",
		Latitude:         &lat,
		Longitude:        &lng,
		BaseRate:         2000,
		DiscountPercent:  25,
		UnavailableDates: pq.StringArray{"2024-06-10"},
		Status:           model.StatusPublished,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  "host-1",
			ModifiedBy: "host-1",
		},
	}

	var res dto.ListingResponse
	res.FromModel(listing)

	assert.Equal(t, listing.ID, res.ID)
	assert.Equal(t, search.CategoryVilla, res.Category)
	assert.Equal(t, 1500.0, res.EffectiveRate)
	assert.Equal(t, []string{"2024-06-10"}, res.UnavailableDates)
	assert.Equal(t, &lat, res.Latitude)
	assert.Equal(t, "host-1", res.CreatedBy)
}

func TestSearchRequest_FromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/listings?kind=Home&q=cavite&guests=3&start_date=2024-06-09&end_date=2024-06-11&category=Villa&price=low&sort=PRICE_ASC&page=2&limit=5", nil)

	var req dto.SearchRequest
	req.FromRequest(r)

	assert.Equal(t, model.KindHome, req.Kind)
	assert.Equal(t, "cavite", req.Query)
	assert.Equal(t, 3, req.MinGuests)
	assert.Equal(t, "villa", req.Category)
	assert.Equal(t, search.SortPriceAsc, req.Sort)
	assert.Equal(t, 2, req.Page)
	assert.Equal(t, 5, req.Limit)

	params, err := req.ToParams(search.DefaultBuckets(model.KindHome))
	require.NoError(t, err)

	require.NotNil(t, params.Start)
	require.NotNil(t, params.End)
	assert.Equal(t, "2024-06-09", params.Start.Format("2006-01-02"))
	assert.Equal(t, 5, params.PageSize)
}

func TestSearchRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/listings?kind=experience", nil)

	var req dto.SearchRequest
	req.FromRequest(r)

	params, err := req.ToParams(nil)
	require.NoError(t, err)

	assert.Nil(t, params.Start)
	assert.Nil(t, params.End)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 10, params.PageSize)
}

func TestAvailabilityRequest_Range(t *testing.T) {
	req := dto.AvailabilityRequest{StartDate: "2024-06-13", EndDate: "2024-06-15"}

	start, end, err := req.Range()
	require.NoError(t, err)

	assert.True(t, start.Before(*end))

	req.EndDate = "15-06-2024"

	_, _, err = req.Range()
	assert.Error(t, err)
}

func TestGetListingsResponse_FromModels(t *testing.T) {
	listings := []model.Listing{
		{ID: "a", Kind: model.KindHome, Title: "Studio"},
		{ID: "b", Kind: model.KindExperience, Title: "Food tour"},
	}

	var res dto.GetListingsResponse
	res.FromModels(listings, 12, 10)

	assert.Equal(t, 12, res.TotalData)
	assert.Equal(t, 2, res.TotalPage)
	require.Len(t, res.Listings, 2)
	assert.Equal(t, search.CategoryTours, res.Listings[1].Category)
}
