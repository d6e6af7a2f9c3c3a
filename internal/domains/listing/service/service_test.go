package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stayhub/config"
	"stayhub/infras/geocode"
	geocodeMocks "stayhub/infras/geocode/mocks"
	"stayhub/infras/kafka"
	kafkaMocks "stayhub/infras/kafka/mocks"
	"stayhub/infras/otel/mocks"
	s3Mocks "stayhub/infras/s3/mocks"
	listingMocks "stayhub/internal/domains/listing/mocks"
	"stayhub/internal/domains/listing/model"
	"stayhub/internal/domains/listing/model/dto"
	"stayhub/internal/domains/listing/service"
	cacheMocks "stayhub/shared/cache/mocks"
	"stayhub/shared/constant"
	gDto "stayhub/shared/dto"
	"stayhub/shared/failure"
)

type deps struct {
	repo     *listingMocks.MockListing
	cache    *cacheMocks.MockRedisCache
	s3       *s3Mocks.MockS3
	kafka    *kafkaMocks.MockClient
	geocoder *geocodeMocks.MockGeocoder
	cfg      *config.Config
	bumps    chan string
}

func newService(t *testing.T) (service.Listing, deps) {
	t.Helper()

	ctrl := gomock.NewController(t)

	d := deps{
		repo:     listingMocks.NewMockListing(ctrl),
		cache:    cacheMocks.NewMockRedisCache(ctrl),
		s3:       s3Mocks.NewMockS3(ctrl),
		kafka:    kafkaMocks.NewMockClient(ctrl),
		geocoder: geocodeMocks.NewMockGeocoder(ctrl),
		cfg:      &config.Config{},
		bumps:    make(chan string, 8),
	}
	d.cfg.Cache.TTL = 3600

	// Background cache maintenance is not under test here.
	d.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	d.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	d.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	d.cache.EXPECT().
		Increment(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string, _ int) (int64, error) {
			select {
			case d.bumps <- key:
			default:
			}

			return 1, nil
		}).
		AnyTimes()

	return service.New(d.repo, d.cfg, d.cache, mocks.NewOtel(), d.s3, d.kafka, d.geocoder), d
}

func asUser(id, role string) context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, id)

	return context.WithValue(ctx, constant.ContextKeyUserRole, role)
}

func cacheMiss(d deps) {
	d.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss")).AnyTimes()
}

func home(id, title string, rate float64) model.Listing {
	return model.Listing{
		ID:        id,
		HostID:    "host-1",
		Title:     title,
		Kind:      model.KindHome,
		Location:  "Tagaytay City",
		Province:  "Cavite",
		BaseRate:  rate,
		MaxGuests: 4,
		Status:    model.StatusPublished,
	}
}

func TestListingService_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(d deps)
		wantErr   bool
		check     func(t *testing.T, res dto.ListingResponse)
	}{
		{
			name: "geocoded draft",
			setupMock: func(d deps) {
				d.geocoder.EXPECT().
					Lookup(gomock.Any(), "Tagaytay City").
					Return(geocode.Location{Latitude: 14.1, Longitude: 120.9, Province: "Cavite"}, nil)
				d.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, res dto.ListingResponse) {
				assert.Equal(t, model.StatusDraft, res.Status)
				assert.Equal(t, "host-1", res.HostID)
				assert.Equal(t, "Cavite", res.Province)
				require.NotNil(t, res.Latitude)
				assert.InDelta(t, 14.1, *res.Latitude, 0.0001)
			},
		},
		{
			name: "geocoder down still saves",
			setupMock: func(d deps) {
				d.geocoder.EXPECT().
					Lookup(gomock.Any(), gomock.Any()).
					Return(geocode.Location{}, geocode.ErrUnavailable)
				d.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, res dto.ListingResponse) {
				assert.Nil(t, res.Latitude)
				assert.Empty(t, res.Province)
			},
		},
		{
			name: "repository error",
			setupMock: func(d deps) {
				d.geocoder.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(geocode.Location{}, geocode.ErrNotFound)
				d.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newService(t)
			tt.setupMock(d)

			res, err := svc.Create(asUser("host-1", constant.RoleHost), dto.CreateListingRequest{
				Title:    "Cozy Apartment",
				Kind:     model.KindHome,
				Location: "Tagaytay City",
				BaseRate: 1200,
			})

			time.Sleep(10 * time.Millisecond)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}

func TestListingService_Get(t *testing.T) {
	draft := home("draft", "Draft Apartment", 1000)
	draft.Status = model.StatusDraft

	tests := []struct {
		name     string
		ctx      context.Context
		stored   model.Listing
		repoErr  error
		wantCode int
	}{
		{name: "published listing for guest", ctx: asUser("guest-1", constant.RoleGuest), stored: home("a", "Cozy Apartment", 1200)},
		{name: "draft hidden from guest", ctx: asUser("guest-1", constant.RoleGuest), stored: draft, wantCode: http.StatusNotFound},
		{name: "draft visible to owner", ctx: asUser("host-1", constant.RoleHost), stored: draft},
		{name: "draft visible to admin", ctx: asUser("root", constant.RoleAdmin), stored: draft},
		{name: "missing listing", ctx: context.Background(), stored: model.Listing{}, wantCode: http.StatusNotFound},
		{name: "database down", ctx: context.Background(), repoErr: errors.New("connection refused"), wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newService(t)
			cacheMiss(d)
			d.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(tt.stored, tt.repoErr)

			res, err := svc.Get(tt.ctx, "id")

			time.Sleep(10 * time.Millisecond)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.stored.ID, res.ID)
		})
	}
}

func TestListingService_Get_CacheHit(t *testing.T) {
	svc, d := newService(t)

	cached := home("a", "Cozy Apartment", 1200)
	d.cache.EXPECT().
		Get(gomock.Any(), "listing:get:a", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value any) error {
			*value.(*model.Listing) = cached

			return nil
		})

	res, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Cozy Apartment", res.Title)
	assert.Equal(t, "apartment", res.Category)
}

func TestListingService_Update(t *testing.T) {
	archived := home("a", "Cozy Apartment", 1200)
	archived.Archived = true

	newLocation := "Baguio"

	tests := []struct {
		name      string
		ctx       context.Context
		req       dto.UpdateListingRequest
		stored    model.Listing
		setupMock func(d deps)
		wantCode  int
	}{
		{
			name:   "owner updates title",
			ctx:    asUser("host-1", constant.RoleHost),
			req:    dto.UpdateListingRequest{Title: "Cozier Apartment"},
			stored: home("a", "Cozy Apartment", 1200),
			setupMock: func(d deps) {
				d.repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, "Cozier Apartment", fields["title"])
						assert.NotContains(t, fields, model.FieldLatitude)

						return nil
					})
			},
		},
		{
			name:   "location change re-geocodes",
			ctx:    asUser("host-1", constant.RoleHost),
			req:    dto.UpdateListingRequest{Location: newLocation},
			stored: home("a", "Cozy Apartment", 1200),
			setupMock: func(d deps) {
				d.geocoder.EXPECT().
					Lookup(gomock.Any(), newLocation).
					Return(geocode.Location{Latitude: 16.4, Longitude: 120.6, Province: "Benguet"}, nil)
				d.repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, "Benguet", fields[model.FieldProvince])
						assert.NotNil(t, fields[model.FieldLatitude])

						return nil
					})
			},
		},
		{
			name:     "other host is forbidden",
			ctx:      asUser("host-2", constant.RoleHost),
			req:      dto.UpdateListingRequest{Title: "Mine now"},
			stored:   home("a", "Cozy Apartment", 1200),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "archived listing",
			ctx:      asUser("host-1", constant.RoleHost),
			req:      dto.UpdateListingRequest{Title: "Revived"},
			stored:   archived,
			wantCode: http.StatusConflict,
		},
		{
			name:     "missing listing",
			ctx:      asUser("host-1", constant.RoleHost),
			req:      dto.UpdateListingRequest{Title: "Ghost"},
			stored:   model.Listing{},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newService(t)
			d.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(tt.stored, nil)

			if tt.setupMock != nil {
				tt.setupMock(d)
			}

			err := svc.Update(tt.ctx, tt.req, "a")

			time.Sleep(10 * time.Millisecond)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestListingService_Publish(t *testing.T) {
	draft := home("a", "Cozy Apartment", 1200)
	draft.Status = model.StatusDraft

	t.Run("publishes draft and emits event", func(t *testing.T) {
		svc, d := newService(t)
		d.cfg.Kafka.Topics.ListingEvents = "listing-events"

		sent := make(chan kafka.Message, 1)

		d.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(draft, nil)
		d.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, model.StatusPublished, fields[model.FieldStatus])

				return nil
			})
		d.kafka.EXPECT().
			SendMessages(gomock.Any(), "listing-events", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, messages ...kafka.Message) error {
				sent <- messages[0]

				return nil
			})

		require.NoError(t, svc.Publish(asUser("host-1", constant.RoleHost), "a"))

		select {
		case msg := <-sent:
			assert.Equal(t, "a", msg.Key)
			event, ok := msg.Value.(model.Event)
			require.True(t, ok)
			assert.Equal(t, model.EventListingPublished, event.Type)
		case <-time.After(time.Second):
			t.Fatal("listing event was not published")
		}
	})

	t.Run("already published is a no-op", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(home("a", "Cozy Apartment", 1200), nil)

		assert.NoError(t, svc.Publish(asUser("host-1", constant.RoleHost), "a"))
	})
}

func TestListingService_Archive(t *testing.T) {
	t.Run("archives listing", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(home("a", "Cozy Apartment", 1200), nil)
		d.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, true, fields[model.FieldArchived])

				return nil
			})

		assert.NoError(t, svc.Archive(asUser("root", constant.RoleAdmin), "a"))

		select {
		case key := <-d.bumps:
			assert.Equal(t, "listing-version:visible:home", key)
		case <-time.After(time.Second):
			t.Fatal("visible snapshot version was not bumped")
		}
	})

	t.Run("already archived is a no-op", func(t *testing.T) {
		svc, d := newService(t)

		archived := home("a", "Cozy Apartment", 1200)
		archived.Archived = true
		d.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(archived, nil)

		assert.NoError(t, svc.Archive(asUser("host-1", constant.RoleHost), "a"))
	})
}

func TestListingService_SetUnavailableDates(t *testing.T) {
	svc, d := newService(t)
	d.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(home("a", "Cozy Apartment", 1200), nil)
	d.repo.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
			assert.Equal(t, pq.StringArray{"2024-06-01", "2024-06-03"}, fields[model.FieldUnavailableDates])

			return nil
		})

	err := svc.SetUnavailableDates(asUser("host-1", constant.RoleHost), "a", dto.SetUnavailableDatesRequest{
		Dates: []string{"2024-06-03", "2024-06-01", "2024-06-03"},
	})

	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, err)
}

func TestListingService_Search(t *testing.T) {
	listings := []model.Listing{
		home("a", "Cozy Apartment", 1200),
		home("b", "Beach Villa", 5000),
		home("c", "Studio Loft", 800),
	}

	tests := []struct {
		name      string
		req       dto.SearchRequest
		repoErr   error
		wantIDs   []string
		wantPage  int
		wantPages int
		wantCode  int
	}{
		{
			name:      "price ascending first page",
			req:       dto.SearchRequest{Kind: model.KindHome, Sort: "price_asc", Page: 1, Limit: 2},
			wantIDs:   []string{"c", "a"},
			wantPage:  1,
			wantPages: 2,
		},
		{
			name:      "page past the end is clamped",
			req:       dto.SearchRequest{Kind: model.KindHome, Sort: "price_asc", Page: 9, Limit: 2},
			wantIDs:   []string{"b"},
			wantPage:  2,
			wantPages: 2,
		},
		{
			name:      "price bucket",
			req:       dto.SearchRequest{Kind: model.KindHome, PriceBucket: "high", Page: 1, Limit: 10},
			wantIDs:   []string{"b"},
			wantPage:  1,
			wantPages: 1,
		},
		{
			name:     "inverted date range",
			req:      dto.SearchRequest{Kind: model.KindHome, StartDate: "2024-06-10", EndDate: "2024-06-01", Page: 1, Limit: 10},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "database down",
			req:      dto.SearchRequest{Kind: model.KindHome, Page: 1, Limit: 10},
			repoErr:  errors.New("connection refused"),
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newService(t)
			cacheMiss(d)
			d.repo.EXPECT().GetVisible(gomock.Any(), model.KindHome).Return(listings, tt.repoErr).AnyTimes()

			res, err := svc.Search(context.Background(), tt.req)

			time.Sleep(10 * time.Millisecond)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)

			got := make([]string, len(res.Listings))
			for i, l := range res.Listings {
				got[i] = l.ID
			}

			assert.Equal(t, tt.wantIDs, got)
			assert.Equal(t, tt.wantPage, res.Page)
			assert.Equal(t, tt.wantPages, res.TotalPages)
		})
	}
}

func TestListingService_Search_CachedSnapshot(t *testing.T) {
	svc, d := newService(t)

	d.cache.EXPECT().Get(gomock.Any(), "listing-version:visible:home", gomock.Any()).Return(errors.New("cache miss"))
	d.cache.EXPECT().
		Get(gomock.Any(), "listing:visible:home:0", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value any) error {
			*value.(*[]model.Listing) = []model.Listing{home("a", "Cozy Apartment", 1200)}

			return nil
		})

	res, err := svc.Search(context.Background(), dto.SearchRequest{Kind: model.KindHome, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalMatched)
}

func TestListingService_Search_SnapshotFollowsVersion(t *testing.T) {
	svc, d := newService(t)

	fresh := home("b", "Beach Villa", 5000)

	// a snapshot saved under an older version is never read again
	d.cache.EXPECT().
		Get(gomock.Any(), "listing-version:visible:home", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value any) error {
			*value.(*string) = "4"

			return nil
		})
	d.cache.EXPECT().Get(gomock.Any(), "listing:visible:home:4", gomock.Any()).Return(errors.New("cache miss"))
	d.cache.EXPECT().Get(gomock.Any(), "listing:visible:home:3", gomock.Any()).Return(nil).Times(0)
	d.repo.EXPECT().GetVisible(gomock.Any(), model.KindHome).Return([]model.Listing{fresh}, nil)

	res, err := svc.Search(context.Background(), dto.SearchRequest{Kind: model.KindHome, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, fresh.ID, res.Listings[0].ID)

	time.Sleep(10 * time.Millisecond)
}

func TestListingService_Suggested(t *testing.T) {
	a := home("a", "Cozy Apartment", 1200)
	a.CompletedBookingsCount = 2
	b := home("b", "Beach Villa", 5000)
	b.CompletedBookingsCount = 9
	c := home("c", "Studio Loft", 800)
	c.CompletedBookingsCount = 5
	e := home("e", "Garden condo", 3000)

	svc, d := newService(t)
	cacheMiss(d)
	d.repo.EXPECT().GetVisible(gomock.Any(), model.KindHome).Return([]model.Listing{a, b, c, e}, nil).AnyTimes()

	res, err := svc.Suggested(context.Background(), model.KindHome, 0)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{res[0].ID, res[1].ID, res[2].ID})
}

func TestListingService_NearMe(t *testing.T) {
	a := home("a", "Cozy Apartment", 1200)
	b := home("b", "Beach Villa", 5000)
	b.Province = "Batangas"
	b.Location = "Nasugbu"

	tests := []struct {
		name    string
		req     dto.NearMeRequest
		wantIDs []string
	}{
		{name: "province match", req: dto.NearMeRequest{Kind: model.KindHome, Province: " cavite "}, wantIDs: []string{"a"}},
		{name: "empty province", req: dto.NearMeRequest{Kind: model.KindHome}, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newService(t)
			cacheMiss(d)
			d.repo.EXPECT().GetVisible(gomock.Any(), gomock.Any()).Return([]model.Listing{a, b}, nil).AnyTimes()

			res, err := svc.NearMe(context.Background(), tt.req)
			require.NoError(t, err)

			got := make([]string, len(res))
			for i, l := range res {
				got[i] = l.ID
			}

			assert.Equal(t, tt.wantIDs, got)
		})
	}
}

func TestListingService_CheckAvailability(t *testing.T) {
	listing := home("a", "Cozy Apartment", 1200)
	listing.UnavailableDates = pq.StringArray{"2024-06-10"}

	tests := []struct {
		name      string
		req       dto.AvailabilityRequest
		want      bool
		wantCode  int
		skipStore bool
	}{
		{name: "free range", req: dto.AvailabilityRequest{StartDate: "2024-06-01", EndDate: "2024-06-09"}, want: true},
		{name: "blocked day inside", req: dto.AvailabilityRequest{StartDate: "2024-06-08", EndDate: "2024-06-12"}, want: false},
		{name: "blocked end day", req: dto.AvailabilityRequest{StartDate: "2024-06-09", EndDate: "2024-06-10"}, want: false},
		{name: "inverted", req: dto.AvailabilityRequest{StartDate: "2024-06-12", EndDate: "2024-06-08"}, wantCode: http.StatusBadRequest},
		{name: "malformed", req: dto.AvailabilityRequest{StartDate: "june", EndDate: "2024-06-08"}, wantCode: http.StatusBadRequest, skipStore: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newService(t)

			if !tt.skipStore {
				cacheMiss(d)
				d.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(listing, nil)
			}

			res, err := svc.CheckAvailability(context.Background(), "a", tt.req)

			time.Sleep(10 * time.Millisecond)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Available)
		})
	}
}

func TestListingService_RecordCompletedBooking(t *testing.T) {
	tests := []struct {
		name     string
		hostID   string
		counted  bool
		repoErr  error
		wantCode int
	}{
		{name: "increments", hostID: "host-1", counted: true},
		{name: "booking already counted", hostID: "host-1", counted: false},
		{name: "unknown listing", hostID: "", wantCode: http.StatusNotFound},
		{name: "database error", repoErr: errors.New("deadlock"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newService(t)
			d.repo.EXPECT().IncrementCompletedBookings(gomock.Any(), "a", "b-1").Return(tt.hostID, tt.counted, tt.repoErr)

			host, err := svc.RecordCompletedBooking(context.Background(), "a", "b-1")

			time.Sleep(10 * time.Millisecond)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.hostID, host)
		})
	}
}
