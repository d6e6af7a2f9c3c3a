package listing

import (
	"mime/multipart"
	"net/http"
	"stayhub/infras/otel"
	"stayhub/internal/domains/listing/model/dto"
	"stayhub/internal/domains/listing/service"
	"stayhub/shared"
	"stayhub/shared/constant"
	gDto "stayhub/shared/dto"
	"stayhub/shared/failure"
	"stayhub/shared/validator"
	"stayhub/transport/http/response"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	formImage      = "image"
	hostSortFields = "omitempty,oneof=created_at modified_at title base_rate rating completed_bookings_count"
)

type Handler struct {
	service service.Listing
	otel    otel.Otel
}

func New(service service.Listing, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/listings", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.SearchListings)
		routerGroup.Post("/", handler.CreateListing)
		routerGroup.Get("/suggested", handler.GetSuggestedListings)
		routerGroup.Get("/near", handler.GetNearListings)
		routerGroup.Get("/{id}", handler.GetListingByID)
		routerGroup.Patch("/{id}", handler.UpdateListing)
		routerGroup.Get("/{id}/availability", handler.CheckAvailability)
		routerGroup.Post("/{id}/publish", handler.PublishListing)
		routerGroup.Post("/{id}/archive", handler.ArchiveListing)
		routerGroup.Put("/{id}/unavailable-dates", handler.SetUnavailableDates)
	})

	router.Get("/hosts/me/listings", handler.GetMyListings)
}

// SearchListings runs the guest search over published listings of one kind.
// @Summary Search listings
// @Description Filter, rank and paginate visible listings of a kind.
// @Tags Listing
// @Produce json
// @Param kind query string true "Listing kind" Enums(home, experience, service)
// @Param q query string false "Text matched against title, province and location"
// @Param guests query integer false "Minimum guest capacity"
// @Param start_date query string false "First night (YYYY-MM-DD)"
// @Param end_date query string false "Last night (YYYY-MM-DD)"
// @Param category query string false "Derived category"
// @Param price query string false "Price bucket name"
// @Param sort query string false "Sort key" Enums(featured, price_asc, price_desc, rating, title)
// @Param page query integer false "Page number"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Data[dto.SearchListingsResponse]
// @Failure 400 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/listings [get]
func (handler *Handler) SearchListings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SearchListings")
	defer scope.End()

	req := dto.SearchRequest{}
	req.FromRequest(request)

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Search(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to search listings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// GetSuggestedListings returns the most booked visible listings of a kind.
// @Summary Suggested listings
// @Tags Listing
// @Produce json
// @Param kind query string true "Listing kind" Enums(home, experience, service)
// @Param limit query integer false "Maximum results"
// @Success 200 {object} response.Data[[]dto.ListingResponse]
// @Failure 400 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/listings/suggested [get]
func (handler *Handler) GetSuggestedListings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSuggestedListings")
	defer scope.End()

	query := request.URL.Query()
	kind := strings.ToLower(strings.TrimSpace(query.Get(dto.ParamKind)))
	limit, _ := shared.ConvertStringToInt(query.Get(constant.RequestParamLimit))

	if err := validator.ValidateVar(kind, "required,oneof=home experience service"); err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Suggested(ctx, kind, limit)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get suggested listings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// GetNearListings returns visible listings in or around the given province.
// @Summary Listings near a province
// @Tags Listing
// @Produce json
// @Param kind query string true "Listing kind" Enums(home, experience, service)
// @Param province query string false "User province"
// @Param limit query integer false "Maximum results"
// @Success 200 {object} response.Data[[]dto.ListingResponse]
// @Failure 400 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/listings/near [get]
func (handler *Handler) GetNearListings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetNearListings")
	defer scope.End()

	query := request.URL.Query()
	req := dto.NearMeRequest{
		Kind:     strings.ToLower(strings.TrimSpace(query.Get(dto.ParamKind))),
		Province: query.Get(dto.ParamProvince),
	}
	req.Limit, _ = shared.ConvertStringToInt(query.Get(constant.RequestParamLimit))

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.NearMe(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get near listings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// GetListingByID retrieves one listing.
// @Summary Get a listing by ID
// @Description Drafts and archived listings are only returned to their host and admins.
// @Tags Listing
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Data[dto.ListingResponse]
// @Failure 404 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/listings/{id} [get]
func (handler *Handler) GetListingByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetListingByID")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	res, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get listing by ID")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// CheckAvailability reports whether every night of a range is free.
// @Summary Check listing availability
// @Tags Listing
// @Produce json
// @Param id path string true "Listing ID"
// @Param start_date query string true "First night (YYYY-MM-DD)"
// @Param end_date query string true "Last night (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.AvailabilityResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/listings/{id}/availability [get]
func (handler *Handler) CheckAvailability(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckAvailability")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)
	req := dto.AvailabilityRequest{
		StartDate: strings.TrimSpace(request.URL.Query().Get(dto.ParamStartDate)),
		EndDate:   strings.TrimSpace(request.URL.Query().Get(dto.ParamEndDate)),
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.CheckAvailability(ctx, id, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check availability")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// CreateListing creates a draft listing for the calling host.
// @Summary Create a listing
// @Tags Listing
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param kind formData string true "Kind" Enums(home, experience, service)
// @Param location formData string true "Location"
// @Param province formData string false "Province"
// @Param base_rate formData number false "Base rate"
// @Param discount_percent formData number false "Discount percent"
// @Param bedrooms formData integer false "Bedrooms"
// @Param bathrooms formData number false "Bathrooms"
// @Param max_guests formData integer false "Maximum guests"
// @Param unavailable_dates formData []string false "Blocked days (YYYY-MM-DD)" collectionFormat(multi)
// @Param image formData file false "Cover image"
// @Success 201 {object} response.Data[dto.ListingResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/listings [post]
// @Security BearerAuth
func (handler *Handler) CreateListing(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateListing")
	defer scope.End()

	if err := request.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")

		response.WithError(writer, failure.BadRequest(err))

		return
	}

	req := dto.CreateListingRequest{
		Title:            request.FormValue("title"),
		Description:      request.FormValue("description"),
		Kind:             strings.ToLower(strings.TrimSpace(request.FormValue("kind"))),
		Location:         request.FormValue("location"),
		Province:         request.FormValue("province"),
		UnavailableDates: request.MultipartForm.Value["unavailable_dates"],
	}

	numbers := numberForm{request: request}
	req.BaseRate = numbers.floatValue("base_rate")
	req.DiscountPercent = numbers.floatValue("discount_percent")
	req.Bedrooms = numbers.intValue("bedrooms")
	req.Bathrooms = numbers.floatValue("bathrooms")
	req.MaxGuests = numbers.intValue("max_guests")

	if numbers.err != nil {
		scope.TraceError(numbers.err)
		response.WithError(writer, numbers.err)

		return
	}

	file, fileHeader, closeFile := formFile(request)
	defer closeFile()

	req.Image, req.ImageFile = fileHeader, file

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create listing")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Listing created by user " + user)

	response.WithJSON(writer, http.StatusCreated, res)
}

// UpdateListing edits a listing owned by the caller.
// @Summary Update a listing
// @Tags Listing
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Listing ID"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param location formData string false "Location"
// @Param province formData string false "Province"
// @Param base_rate formData number false "Base rate"
// @Param discount_percent formData number false "Discount percent"
// @Param bedrooms formData integer false "Bedrooms"
// @Param bathrooms formData number false "Bathrooms"
// @Param max_guests formData integer false "Maximum guests"
// @Param image formData file false "Cover image"
// @Success 200 {object} response.Message
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/listings/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateListing(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateListing")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	if err := request.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")

		response.WithError(writer, failure.BadRequest(err))

		return
	}

	numbers := numberForm{request: request}

	req := dto.UpdateListingRequest{
		Title:           strings.TrimSpace(request.FormValue("title")),
		Location:        strings.TrimSpace(request.FormValue("location")),
		Description:     optionalString(request, "description"),
		Province:        optionalString(request, "province"),
		BaseRate:        numbers.floatPtr("base_rate"),
		DiscountPercent: numbers.floatPtr("discount_percent"),
		Bedrooms:        numbers.intPtr("bedrooms"),
		Bathrooms:       numbers.floatPtr("bathrooms"),
		MaxGuests:       numbers.intPtr("max_guests"),
	}

	if numbers.err != nil {
		scope.TraceError(numbers.err)
		response.WithError(writer, numbers.err)

		return
	}

	file, fileHeader, closeFile := formFile(request)
	defer closeFile()

	req.Image, req.ImageFile = fileHeader, file

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update listing")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Listing updated by user " + user)

	response.WithMessage(writer, http.StatusOK, "Listing updated successfully")
}

// PublishListing makes a draft visible to guests.
// @Summary Publish a listing
// @Tags Listing
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/listings/{id}/publish [post]
// @Security BearerAuth
func (handler *Handler) PublishListing(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PublishListing")
	defer scope.End()

	if err := handler.service.Publish(ctx, chi.URLParam(request, constant.RequestParamID)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to publish listing")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Listing published successfully")
}

// ArchiveListing hides a listing permanently.
// @Summary Archive a listing
// @Tags Listing
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/listings/{id}/archive [post]
// @Security BearerAuth
func (handler *Handler) ArchiveListing(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ArchiveListing")
	defer scope.End()

	if err := handler.service.Archive(ctx, chi.URLParam(request, constant.RequestParamID)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to archive listing")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Listing archived successfully")
}

// SetUnavailableDates replaces the blocked days of a listing.
// @Summary Set unavailable dates
// @Tags Listing
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Param request body dto.SetUnavailableDatesRequest true "Blocked days"
// @Success 200 {object} response.Message
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/listings/{id}/unavailable-dates [put]
// @Security BearerAuth
func (handler *Handler) SetUnavailableDates(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SetUnavailableDates")
	defer scope.End()

	req := dto.SetUnavailableDatesRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.SetUnavailableDates(ctx, chi.URLParam(request, constant.RequestParamID), req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to set unavailable dates")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Unavailable dates updated successfully")
}

// GetMyListings lists the calling host's listings.
// @Summary Get my listings
// @Tags Listing
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param include_archived query boolean false "Include archived listings"
// @Success 200 {object} response.Data[dto.GetListingsResponse]
// @Failure 400 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/hosts/me/listings [get]
// @Security BearerAuth
func (handler *Handler) GetMyListings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyListings")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	if err := validator.ValidateVar(queryParams.SortBy, hostSortFields); err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	includeArchived := false
	if archived := shared.ConvertStringToBool(request.URL.Query().Get(dto.ParamArchived)); archived != nil {
		includeArchived = *archived
	}

	res, err := handler.service.GetByHost(ctx, queryParams, includeArchived)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get host listings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

func formFile(request *http.Request) (multipart.File, *multipart.FileHeader, func()) {
	file, fileHeader, err := request.FormFile(formImage)
	if err != nil {
		return nil, nil, func() {}
	}

	return file, fileHeader, func() { _ = file.Close() }
}

func optionalString(request *http.Request, key string) *string {
	if _, ok := request.MultipartForm.Value[key]; !ok {
		return nil
	}

	value := strings.TrimSpace(request.FormValue(key))

	return &value
}

// numberForm reads numeric form fields. Blank fields are absent; the first
// malformed one is kept in err.
type numberForm struct {
	request *http.Request
	err     error
}

func (f *numberForm) raw(key string) string {
	return strings.TrimSpace(f.request.FormValue(key))
}

func (f *numberForm) fail(key string) {
	if f.err == nil {
		f.err = failure.BadRequestFromString(key + " must be a number")
	}
}

func (f *numberForm) floatPtr(key string) *float64 {
	raw := f.raw(key)
	if raw == constant.Empty {
		return nil
	}

	value, err := shared.ConvertStringToFloat(raw)
	if err != nil {
		f.fail(key)

		return nil
	}

	return &value
}

func (f *numberForm) intPtr(key string) *int {
	raw := f.raw(key)
	if raw == constant.Empty {
		return nil
	}

	value, err := shared.ConvertStringToInt(raw)
	if err != nil {
		f.fail(key)

		return nil
	}

	return &value
}

func (f *numberForm) floatValue(key string) float64 {
	if value := f.floatPtr(key); value != nil {
		return *value
	}

	return 0
}

func (f *numberForm) intValue(key string) int {
	if value := f.intPtr(key); value != nil {
		return *value
	}

	return 0
}
