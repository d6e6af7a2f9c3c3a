package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"strings"

	"stayhub/config"
	"stayhub/infras/geocode"
	"stayhub/infras/kafka"
	"stayhub/infras/otel"
	"stayhub/infras/s3"
	"stayhub/internal/domains/listing/model"
	"stayhub/internal/domains/listing/model/dto"
	"stayhub/internal/domains/listing/repository"
	"stayhub/internal/domains/listing/search"
	"stayhub/shared"
	"stayhub/shared/cache"
	"stayhub/shared/constant"
	gDto "stayhub/shared/dto"
	"stayhub/shared/failure"
	"stayhub/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	cacheGetListing       = "listing:get"
	cacheVisibleListings  = "listing:visible"
	cacheVisibleVersion   = "listing-version:visible"
	visibleVersionTTL     = 7 * 24 * 60 * 60
	cacheHostListings     = "listing:host"
	defaultSuggestedLimit = 3
	defaultHomeNearLimit  = 3
	messageUnavailable    = "listings are temporarily unavailable, please retry"
)

type Listing interface {
	Create(ctx context.Context, req dto.CreateListingRequest) (dto.ListingResponse, error)
	Update(ctx context.Context, req dto.UpdateListingRequest, id string) error
	Publish(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	SetUnavailableDates(ctx context.Context, id string, req dto.SetUnavailableDatesRequest) error
	Get(ctx context.Context, id string) (dto.ListingResponse, error)
	GetByHost(ctx context.Context, params gDto.QueryParams, includeArchived bool) (dto.GetListingsResponse, error)
	Search(ctx context.Context, req dto.SearchRequest) (dto.SearchListingsResponse, error)
	Suggested(ctx context.Context, kind string, limit int) ([]dto.ListingResponse, error)
	NearMe(ctx context.Context, req dto.NearMeRequest) ([]dto.ListingResponse, error)
	CheckAvailability(ctx context.Context, id string, req dto.AvailabilityRequest) (dto.AvailabilityResponse, error)
	RecordCompletedBooking(ctx context.Context, listingID, bookingID string) (hostID string, err error)
}

type serviceImpl struct {
	repo     repository.Listing
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	s3       s3.S3
	kafka    kafka.Client
	geocoder geocode.Geocoder
	buckets  map[string]search.Buckets
	loads    singleflight.Group
}

func New(repo repository.Listing, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, s3 s3.S3, kafka kafka.Client, geocoder geocode.Geocoder) Listing {
	return &serviceImpl{
		repo:     repo,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		s3:       s3,
		kafka:    kafka,
		geocoder: geocoder,
		buckets: map[string]search.Buckets{
			model.KindHome:       configuredBuckets(model.KindHome, cfg.Listing.PriceBuckets.Home),
			model.KindExperience: configuredBuckets(model.KindExperience, cfg.Listing.PriceBuckets.Experience),
			model.KindService:    configuredBuckets(model.KindService, cfg.Listing.PriceBuckets.Service),
		},
	}
}

func configuredBuckets(kind, raw string) search.Buckets {
	buckets, err := search.ParseBuckets(raw)
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("invalid price buckets, using defaults")

		return search.DefaultBuckets(kind)
	}

	if len(buckets) == 0 {
		return search.DefaultBuckets(kind)
	}

	return buckets
}

func actor(ctx context.Context) (user, role string) {
	user, _ = ctx.Value(constant.ContextKeyUserID).(string)
	role, _ = ctx.Value(constant.ContextKeyUserRole).(string)

	return user, role
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateListingRequest) (res dto.ListingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(&err)

	host, _ := actor(ctx)

	imageURL, objectKey, err := s.uploadImage(ctx, req.Image, req.ImageFile)
	if err != nil {
		return res, err
	}

	listing := req.ToModel(host, imageURL)
	s.enrichLocation(ctx, &listing)

	if err = s.repo.Insert(ctx, listing); err != nil {
		log.Error().Err(err).Msg("failed to insert listing")

		if objectKey != constant.Empty {
			_ = s.s3.DeleteFile(ctx, objectKey)
		}

		return res, fmt.Errorf("failed to create listing: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, shared.BuildCacheKey(cacheHostListings, host))
	}()

	res.FromModel(listing)

	return res, nil
}

func (s *serviceImpl) uploadImage(ctx context.Context, image *multipart.FileHeader, file multipart.File) (url, objectKey string, err error) {
	if image == nil {
		return constant.Empty, constant.Empty, nil
	}

	filename := uuid.NewString()
	if ext := path.Ext(image.Filename); ext != constant.Empty {
		filename += strings.ToLower(ext)
	}

	url, err = s.s3.UploadFile(ctx, model.EntityName, file, image, filename)
	if err != nil {
		log.Error().Err(err).Msg("failed to upload listing image")

		return constant.Empty, constant.Empty, fmt.Errorf("failed to upload image: %w", err)
	}

	return url, path.Join(model.EntityName, filename), nil
}

// enrichLocation fills province and coordinates from the geocoder. Failures are
// logged and the listing is saved without them.
func (s *serviceImpl) enrichLocation(ctx context.Context, listing *model.Listing) {
	loc, err := s.geocoder.Lookup(ctx, listing.Location)
	if err != nil {
		log.Warn().Err(err).Str("location", listing.Location).Msg("geocoding failed, saving listing without coordinates")

		return
	}

	listing.Latitude = &loc.Latitude
	listing.Longitude = &loc.Longitude

	if listing.Province == constant.Empty {
		listing.Province = loc.Province
	}
}

// ownedListing loads a listing the caller may modify. Admins may modify any listing.
func (s *serviceImpl) ownedListing(ctx context.Context, id string) (model.Listing, error) {
	listing, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get listing")

		return listing, fmt.Errorf("failed to get listing: %w", err)
	}

	if listing.ID == constant.Empty {
		return listing, failure.NotFound("listing not found")
	}

	user, role := actor(ctx)
	if listing.HostID != user && role != constant.RoleAdmin {
		return listing, failure.Forbidden("listing belongs to another host")
	}

	return listing, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateListingRequest, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(&err)

	current, err := s.ownedListing(ctx, id)
	if err != nil {
		return err
	}

	if current.Archived {
		return failure.Conflict("archived listings cannot be edited")
	}

	user, _ := actor(ctx)

	imageURL, objectKey, err := s.uploadImage(ctx, req.Image, req.ImageFile)
	if err != nil {
		return err
	}

	updatedFields := shared.TransformFields(req, user)
	if imageURL != constant.Empty {
		updatedFields[model.FieldImage] = imageURL
	}

	location := strings.TrimSpace(req.Location)
	if location != constant.Empty && location != current.Location {
		moved := current
		moved.Location = location
		moved.Province = constant.Empty

		if req.Province != nil {
			moved.Province = strings.TrimSpace(*req.Province)
		}

		moved.Latitude, moved.Longitude = nil, nil
		s.enrichLocation(ctx, &moved)

		updatedFields[model.FieldLocation] = location
		updatedFields[model.FieldProvince] = moved.Province
		updatedFields[model.FieldLatitude] = moved.Latitude
		updatedFields[model.FieldLongitude] = moved.Longitude
	}

	if err = s.repo.Update(ctx, updatedFields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Msg("failed to update listing")

		if objectKey != constant.Empty {
			_ = s.s3.DeleteFile(ctx, objectKey)
		}

		return fmt.Errorf("failed to update listing: %w", err)
	}

	if imageURL != constant.Empty && current.Image != constant.Empty {
		if oldKey := s.s3.ObjectKeyFromURL(current.Image); oldKey != constant.Empty {
			_ = s.s3.DeleteFile(ctx, oldKey)
		}
	}

	s.invalidate(ctx, current)

	return nil
}

func (s *serviceImpl) Publish(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Publish")
	defer scope.End()
	defer scope.TraceIfError(&err)

	current, err := s.ownedListing(ctx, id)
	if err != nil {
		return err
	}

	if current.Archived {
		return failure.Conflict("archived listings cannot be published")
	}

	if current.Status == model.StatusPublished {
		return nil
	}

	user, _ := actor(ctx)

	fields := map[string]any{
		model.FieldStatus:        model.StatusPublished,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}

	if err = s.repo.Update(ctx, fields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Msg("failed to publish listing")

		return fmt.Errorf("failed to publish listing: %w", err)
	}

	s.invalidate(ctx, current)
	s.publishEvent(ctx, model.EventListingPublished, current)

	return nil
}

func (s *serviceImpl) Archive(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Archive")
	defer scope.End()
	defer scope.TraceIfError(&err)

	current, err := s.ownedListing(ctx, id)
	if err != nil {
		return err
	}

	if current.Archived {
		return nil
	}

	user, _ := actor(ctx)

	fields := map[string]any{
		model.FieldArchived:      true,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}

	if err = s.repo.Update(ctx, fields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Msg("failed to archive listing")

		return fmt.Errorf("failed to archive listing: %w", err)
	}

	s.invalidate(ctx, current)
	s.publishEvent(ctx, model.EventListingArchived, current)

	return nil
}

func (s *serviceImpl) SetUnavailableDates(ctx context.Context, id string, req dto.SetUnavailableDatesRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".SetUnavailableDates")
	defer scope.End()
	defer scope.TraceIfError(&err)

	current, err := s.ownedListing(ctx, id)
	if err != nil {
		return err
	}

	if current.Archived {
		return failure.Conflict("archived listings cannot be edited")
	}

	user, _ := actor(ctx)

	fields := map[string]any{
		model.FieldUnavailableDates: dto.NormalizeDays(req.Dates),
		constant.FieldModifiedAt:    timezone.Now(),
		constant.FieldModifiedBy:    user,
	}

	if err = s.repo.Update(ctx, fields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Msg("failed to set unavailable dates")

		return fmt.Errorf("failed to set unavailable dates: %w", err)
	}

	s.invalidate(ctx, current)

	return nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.ListingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(&err)

	listing, err := s.readableListing(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(listing)

	return res, nil
}

// readableListing returns a listing guests may see, or any listing to its host and admins.
// Hidden listings are reported as not found so their existence is not leaked.
func (s *serviceImpl) readableListing(ctx context.Context, id string) (listing model.Listing, err error) {
	cacheKey := shared.BuildCacheKey(cacheGetListing, id)

	if err = s.cache.Get(ctx, cacheKey, &listing); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for listing")
	} else {
		listing, err = s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
		if err != nil {
			log.Error().Err(err).Msg("failed to get listing")

			return listing, failure.Unavailable(messageUnavailable)
		}

		if listing.ID == constant.Empty {
			return listing, failure.NotFound("listing not found")
		}

		go func() {
			c := context.WithoutCancel(ctx)

			if err := s.cache.Save(c, cacheKey, listing, s.cfg.Cache.TTL); err != nil {
				log.Error().Err(err).Msg("failed to save listing to cache")
			}
		}()
	}

	user, role := actor(ctx)
	if !listing.Visible() && listing.HostID != user && role != constant.RoleAdmin {
		return model.Listing{}, failure.NotFound("listing not found")
	}

	return listing, nil
}

func (s *serviceImpl) GetByHost(ctx context.Context, params gDto.QueryParams, includeArchived bool) (res dto.GetListingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetByHost")
	defer scope.End()
	defer scope.TraceIfError(&err)

	host, _ := actor(ctx)
	cacheKey := shared.BuildCacheKeyWithQuery(shared.BuildCacheKey(cacheHostListings, host), params, includeArchived)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for host listings")

		return res, nil
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldHostID, Value: host, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}

	if !includeArchived {
		filter.Filters = append(filter.Filters, gDto.Filter{Field: model.FieldArchived, Value: false, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	if params.SortBy == constant.Empty {
		params.SortBy = constant.DefaultValueSortBy
	}

	if params.SortDir == constant.Empty {
		params.SortDir = constant.DefaultValueSortDir
	}

	params.SortBy = model.TableName + "." + params.SortBy

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count host listings")

		return res, failure.Unavailable(messageUnavailable)
	}

	listings, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get host listings")

		return res, failure.Unavailable(messageUnavailable)
	}

	res.FromModels(listings, total, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save host listings to cache")
		}
	}()

	return res, nil
}

// visibleListings returns the cached guest-visible snapshot for kind. Concurrent
// misses share one database load. Snapshots are keyed by the kind's version, so
// a load that raced a write saves under a version nobody reads any more.
func (s *serviceImpl) visibleListings(ctx context.Context, kind string) ([]model.Listing, error) {
	cacheKey := shared.BuildCacheKey(cacheVisibleListings, kind, s.visibleVersion(ctx, kind))

	var listings []model.Listing
	if err := s.cache.Get(ctx, cacheKey, &listings); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for visible listings")

		return listings, nil
	}

	loaded, err, _ := s.loads.Do(cacheKey, func() (any, error) {
		c := context.WithoutCancel(ctx)

		listings, err := s.repo.GetVisible(c, kind)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.Save(c, cacheKey, listings, s.cfg.Cache.TTL); err != nil {
				log.Error().Err(err).Msg("failed to save visible listings to cache")
			}
		}()

		return listings, nil
	})
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("failed to load visible listings")

		return nil, failure.Unavailable(messageUnavailable)
	}

	listings, _ = loaded.([]model.Listing)

	return listings, nil
}

// visibleVersion is read before the snapshot is loaded. A missing or
// unreadable version counts as "0".
func (s *serviceImpl) visibleVersion(ctx context.Context, kind string) string {
	var version string
	if err := s.cache.Get(ctx, shared.BuildCacheKey(cacheVisibleVersion, kind), &version); err != nil || version == constant.Empty {
		return "0"
	}

	return version
}

func (s *serviceImpl) Search(ctx context.Context, req dto.SearchRequest) (res dto.SearchListingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Search")
	defer scope.End()
	defer scope.TraceIfError(&err)

	params, err := req.ToParams(s.buckets[req.Kind])
	if err != nil {
		return res, failure.BadRequest(err)
	}

	listings, err := s.visibleListings(ctx, req.Kind)
	if err != nil {
		return res, err
	}

	page, size := params.Page, params.PageSize
	params.Page = 0

	result, err := search.Query(listings, params)
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	if size > 0 {
		result.Page = search.ClampPage(page, result.TotalPages)
		result.Items = search.Paginate(result.Items, result.Page, size)
	}

	res.FromResult(result)

	return res, nil
}

func (s *serviceImpl) Suggested(ctx context.Context, kind string, limit int) (res []dto.ListingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Suggested")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if limit <= 0 {
		limit = s.cfg.Listing.SuggestedLimit
	}

	if limit <= 0 {
		limit = defaultSuggestedLimit
	}

	listings, err := s.visibleListings(ctx, kind)
	if err != nil {
		return res, err
	}

	return dto.FromModels(search.Suggested(listings, limit)), nil
}

func (s *serviceImpl) NearMe(ctx context.Context, req dto.NearMeRequest) (res []dto.ListingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".NearMe")
	defer scope.End()
	defer scope.TraceIfError(&err)

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.Listing.NearMeLimit
	}

	if limit <= 0 && req.Kind == model.KindHome {
		limit = defaultHomeNearLimit
	}

	if strings.TrimSpace(req.Province) == constant.Empty {
		return []dto.ListingResponse{}, nil
	}

	listings, err := s.visibleListings(ctx, req.Kind)
	if err != nil {
		return res, err
	}

	return dto.FromModels(search.NearMe(listings, req.Province, limit)), nil
}

func (s *serviceImpl) CheckAvailability(ctx context.Context, id string, req dto.AvailabilityRequest) (res dto.AvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CheckAvailability")
	defer scope.End()
	defer scope.TraceIfError(&err)

	start, end, err := req.Range()
	if err != nil {
		return res, failure.BadRequest(err)
	}

	listing, err := s.readableListing(ctx, id)
	if err != nil {
		return res, err
	}

	available, err := search.IsRangeBookable(search.NewDateSet(listing.BlockedDays()...), start, end)
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	return dto.AvailabilityResponse{
		ListingID: listing.ID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Available: available,
	}, nil
}

// RecordCompletedBooking counts bookingID against the listing once. Repeated
// calls for the same booking return the host without counting again.
func (s *serviceImpl) RecordCompletedBooking(ctx context.Context, listingID, bookingID string) (hostID string, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RecordCompletedBooking")
	defer scope.End()
	defer scope.TraceIfError(&err)

	hostID, counted, err := s.repo.IncrementCompletedBookings(ctx, listingID, bookingID)
	if err != nil {
		log.Error().Err(err).Str("listing", listingID).Str("booking", bookingID).Msg("failed to record completed booking")

		return constant.Empty, fmt.Errorf("failed to record completed booking: %w", err)
	}

	if hostID == constant.Empty {
		return constant.Empty, failure.NotFound("listing not found")
	}

	if !counted {
		log.Info().Str("listing", listingID).Str("booking", bookingID).Msg("completed booking already counted")

		return hostID, nil
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetListing, listingID)); err != nil {
			log.Error().Err(err).Msg("failed to delete listing cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheVisibleListings)
		shared.InvalidateCaches(c, s.cache, shared.BuildCacheKey(cacheHostListings, hostID))
	}()

	return hostID, nil
}

func (s *serviceImpl) invalidate(ctx context.Context, listing model.Listing) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetListing, listing.ID)); err != nil {
			log.Error().Err(err).Msg("failed to delete listing cache")
		}

		if _, err := s.cache.Increment(c, shared.BuildCacheKey(cacheVisibleVersion, listing.Kind), visibleVersionTTL); err != nil {
			log.Error().Err(err).Msg("failed to bump visible listings version")
		}

		shared.InvalidateCaches(c, s.cache, shared.BuildCacheKey(cacheVisibleListings, listing.Kind))

		shared.InvalidateCaches(c, s.cache, shared.BuildCacheKey(cacheHostListings, listing.HostID))
	}()
}

func (s *serviceImpl) publishEvent(ctx context.Context, eventType string, listing model.Listing) {
	topic := s.cfg.Kafka.Topics.ListingEvents
	if topic == constant.Empty {
		return
	}

	event := model.Event{
		Type:       eventType,
		ListingID:  listing.ID,
		HostID:     listing.HostID,
		Kind:       listing.Kind,
		OccurredAt: timezone.Now(),
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.kafka.SendMessages(c, topic, kafka.Message{Key: listing.ID, Value: event}); err != nil {
			log.Error().Err(err).Str("type", eventType).Str("listing", listing.ID).Msg("failed to publish listing event")
		}
	}()
}
