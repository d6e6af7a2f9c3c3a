package dto

import (
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"time"

	"stayhub/internal/domains/listing/model"
	"stayhub/internal/domains/listing/search"
	"stayhub/shared"
	"stayhub/shared/constant"
	gDto "stayhub/shared/dto"
	gModel "stayhub/shared/model"
	"stayhub/shared/timezone"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	ParamKind        = "kind"
	ParamQuery       = "q"
	ParamMinGuests   = "guests"
	ParamStartDate   = "start_date"
	ParamEndDate     = "end_date"
	ParamCategory    = "category"
	ParamPriceBucket = "price"
	ParamSort        = "sort"
	ParamProvince    = "province"
	ParamArchived    = "include_archived"
)

type CreateListingRequest struct {
	Title            string                `json:"title"             validate:"required,max=150"`
	Description      string                `json:"description"       validate:"omitempty,max=5000"`
	Kind             string                `json:"kind"              validate:"required,oneof=home experience service"`
	Location         string                `json:"location"          validate:"required,max=200"`
	Province         string                `json:"province"          validate:"omitempty,max=100"`
	BaseRate         float64               `json:"base_rate"         validate:"gte=0"`
	DiscountPercent  float64               `json:"discount_percent"  validate:"gte=0,lte=100"`
	Bedrooms         int                   `json:"bedrooms"          validate:"gte=0"`
	Bathrooms        float64               `json:"bathrooms"         validate:"gte=0"`
	MaxGuests        int                   `json:"max_guests"        validate:"gte=0"`
	UnavailableDates []string              `json:"unavailable_dates" validate:"omitempty,dive,day"`
	Image            *multipart.FileHeader `json:"image"             validate:"omitempty,mimetypes=image/png image/jpg image/jpeg image/webp,maxfilesize=2"`
	ImageFile        multipart.File        `json:"-"`
}

// ToModel builds a draft listing owned by host. Province and coordinates are
// left for the caller to fill in from geocoding.
func (c *CreateListingRequest) ToModel(host string, imageURL string) model.Listing {
	return model.Listing{
		ID:               uuid.NewString(),
		HostID:           host,
		Title:            strings.TrimSpace(c.Title),
		Description:      c.Description,
		Kind:             c.Kind,
		Location:         strings.TrimSpace(c.Location),
		Province:         strings.TrimSpace(c.Province),
		Image:            imageURL,
		BaseRate:         c.BaseRate,
		DiscountPercent:  c.DiscountPercent,
		Bedrooms:         c.Bedrooms,
		Bathrooms:        c.Bathrooms,
		MaxGuests:        c.MaxGuests,
		UnavailableDates: NormalizeDays(c.UnavailableDates),
		Status:           model.StatusDraft,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  host,
			ModifiedBy: host,
		},
	}
}

type UpdateListingRequest struct {
	Title           string                `db:"title"            json:"title"            validate:"omitempty,max=150"`
	Description     *string               `db:"description"      json:"description"      validate:"omitempty,max=5000"`
	Location        string                `db:"location"         json:"location"         validate:"omitempty,max=200"`
	Province        *string               `db:"province"         json:"province"         validate:"omitempty,max=100"`
	BaseRate        *float64              `db:"base_rate"        json:"base_rate"        validate:"omitempty,gte=0"`
	DiscountPercent *float64              `db:"discount_percent" json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
	Bedrooms        *int                  `db:"bedrooms"         json:"bedrooms"         validate:"omitempty,gte=0"`
	Bathrooms       *float64              `db:"bathrooms"        json:"bathrooms"        validate:"omitempty,gte=0"`
	MaxGuests       *int                  `db:"max_guests"       json:"max_guests"       validate:"omitempty,gte=0"`
	Image           *multipart.FileHeader `json:"image"          validate:"omitempty,mimetypes=image/png image/jpg image/jpeg image/webp,maxfilesize=2"`
	ImageFile       multipart.File        `json:"-"`
}

type SetUnavailableDatesRequest struct {
	Dates []string `json:"dates" validate:"omitempty,dive,day"`
}

// NormalizeDays sorts days and drops duplicates. Values are expected to be
// validated YYYY-MM-DD strings.
func NormalizeDays(days []string) pq.StringArray {
	seen := make(map[string]struct{}, len(days))
	res := make(pq.StringArray, 0, len(days))

	for _, d := range days {
		d = strings.TrimSpace(d)
		if _, ok := seen[d]; ok || d == constant.Empty {
			continue
		}

		seen[d] = struct{}{}
		res = append(res, d)
	}

	// YYYY-MM-DD sorts chronologically as a string.
	slices.Sort(res)

	return res
}

type SearchRequest struct {
	Kind        string `json:"kind"         validate:"required,oneof=home experience service"`
	Query       string `json:"q"            validate:"omitempty,max=200"`
	MinGuests   int    `json:"guests"       validate:"gte=0"`
	StartDate   string `json:"start_date"   validate:"omitempty,day"`
	EndDate     string `json:"end_date"     validate:"omitempty,day"`
	Category    string `json:"category"     validate:"omitempty,oneof=all apartment villa condo studio house tours workshops adventure cultural other"`
	PriceBucket string `json:"price"        validate:"omitempty,max=50"`
	Sort        string `json:"sort"         validate:"omitempty,oneof=featured price_asc price_desc rating title"`
	Page        int    `json:"page"         validate:"gte=0"`
	Limit       int    `json:"limit"        validate:"gte=0,lte=100"`
}

func (s *SearchRequest) FromRequest(r *http.Request) {
	query := r.URL.Query()

	s.Kind = strings.ToLower(strings.TrimSpace(query.Get(ParamKind)))
	s.Query = query.Get(ParamQuery)
	s.StartDate = strings.TrimSpace(query.Get(ParamStartDate))
	s.EndDate = strings.TrimSpace(query.Get(ParamEndDate))
	s.Category = strings.ToLower(strings.TrimSpace(query.Get(ParamCategory)))
	s.PriceBucket = strings.TrimSpace(query.Get(ParamPriceBucket))
	s.Sort = strings.ToLower(strings.TrimSpace(query.Get(ParamSort)))

	if guests, err := shared.ConvertStringToInt(query.Get(ParamMinGuests)); err == nil {
		s.MinGuests = guests
	}

	params := gDto.QueryParams{}
	params.FromRequest(r, true)

	s.Page = params.Page
	s.Limit = params.Limit
}

// ToParams converts the request into pipeline parameters using the price buckets of its kind.
func (s *SearchRequest) ToParams(buckets search.Buckets) (search.Params, error) {
	params := search.Params{
		Query:       s.Query,
		MinGuests:   s.MinGuests,
		Category:    s.Category,
		PriceBucket: s.PriceBucket,
		Buckets:     buckets,
		Sort:        s.Sort,
		Page:        s.Page,
		PageSize:    s.Limit,
	}

	start, end, err := parseRange(s.StartDate, s.EndDate)
	if err != nil {
		return params, err
	}

	params.Start, params.End = start, end

	return params, nil
}

type AvailabilityRequest struct {
	StartDate string `json:"start_date" validate:"required,day"`
	EndDate   string `json:"end_date"   validate:"required,day"`
}

func (a *AvailabilityRequest) Range() (*time.Time, *time.Time, error) {
	return parseRange(a.StartDate, a.EndDate)
}

func parseRange(startDate, endDate string) (*time.Time, *time.Time, error) {
	var start, end *time.Time

	if startDate != constant.Empty {
		day, err := timezone.ParseDay(startDate)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}

		start = &day
	}

	if endDate != constant.Empty {
		day, err := timezone.ParseDay(endDate)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}

		end = &day
	}

	return start, end, nil
}

type AvailabilityResponse struct {
	ListingID string `json:"listing_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available bool   `json:"available"`
}

type NearMeRequest struct {
	Kind     string `json:"kind"     validate:"required,oneof=home experience service"`
	Province string `json:"province" validate:"omitempty,max=100"`
	Limit    int    `json:"limit"    validate:"gte=0,lte=100"`
}

type ListingResponse struct {
	ID                     string   `json:"id"`
	HostID                 string   `json:"host_id"`
	Title                  string   `json:"title"`
	Description            string   `json:"description"`
	Kind                   string   `json:"kind"`
	Category               string   `json:"category"`
	Location               string   `json:"location"`
	Province               string   `json:"province"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	Image                  string   `json:"image"`
	BaseRate               float64  `json:"base_rate"`
	DiscountPercent        float64  `json:"discount_percent"`
	EffectiveRate          float64  `json:"effective_rate"`
	Rating                 float64  `json:"rating"`
	Bedrooms               int      `json:"bedrooms"`
	Bathrooms              float64  `json:"bathrooms"`
	MaxGuests              int      `json:"max_guests"`
	UnavailableDates       []string `json:"unavailable_dates"`
	CompletedBookingsCount int64    `json:"completed_bookings_count"`
	Status                 string   `json:"status"`
	Archived               bool     `json:"archived"`
	gDto.Metadata
}

func (r *ListingResponse) FromModel(model model.Listing) {
	r.ID = model.ID
	r.HostID = model.HostID
	r.Title = model.Title
	r.Description = model.Description
	r.Kind = model.Kind
	r.Category = search.DeriveCategory(model)
	r.Location = model.Location
	r.Province = model.Province
	r.Latitude = model.Latitude
	r.Longitude = model.Longitude
	r.Image = model.Image
	r.BaseRate = model.BaseRate
	r.DiscountPercent = model.DiscountPercent
	r.EffectiveRate = model.EffectiveRate()
	r.Rating = model.Rating
	r.Bedrooms = model.Bedrooms
	r.Bathrooms = model.Bathrooms
	r.MaxGuests = model.MaxGuests
	r.CompletedBookingsCount = model.CompletedBookingsCount
	r.Status = model.Status
	r.Archived = model.Archived
	r.Metadata.FromModel(model.Metadata)

	r.UnavailableDates = make([]string, 0, len(model.UnavailableDates))
	for _, d := range model.BlockedDays() {
		r.UnavailableDates = append(r.UnavailableDates, d.Format(constant.DayFormat))
	}
}

func FromModels(models []model.Listing) []ListingResponse {
	res := make([]ListingResponse, len(models))
	for i, mod := range models {
		res[i].FromModel(mod)
	}

	return res
}

type SearchListingsResponse struct {
	Listings     []ListingResponse `json:"listings"`
	TotalMatched int               `json:"total_matched"`
	TotalPages   int               `json:"total_pages"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
}

func (r *SearchListingsResponse) FromResult(result search.Result) {
	r.Listings = FromModels(result.Items)
	r.TotalMatched = result.TotalMatched
	r.TotalPages = result.TotalPages
	r.Page = result.Page
	r.PageSize = result.PageSize
}

type GetListingsResponse struct {
	Listings  []ListingResponse `json:"listings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetListingsResponse) FromModels(models []model.Listing, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)
	r.Listings = FromModels(models)
}
