package search_test

import (
	"errors"
	"net/http"
	"stayhub/internal/domains/listing/model"
	"stayhub/internal/domains/listing/search"
	"stayhub/shared/failure"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func published(id, title string) model.Listing {
	return model.Listing{
		ID:        id,
		Title:     title,
		Kind:      model.KindHome,
		Status:    model.StatusPublished,
		MaxGuests: 2,
	}
}

func ids(listings []model.Listing) []string {
	res := make([]string, len(listings))
	for i, l := range listings {
		res[i] = l.ID
	}

	return res
}

func fixture() []model.Listing {
	a := published("a", "Cozy Apartment")
	a.Location = "Tagaytay City"
	a.Province = "Cavite"
	a.BaseRate = 1200
	a.Rating = 4.5
	a.MaxGuests = 4

	b := published("b", "Beach Villa")
	b.Location = "Nasugbu"
	b.Province = "Batangas"
	b.BaseRate = 5000
	b.Rating = 4.9
	b.MaxGuests = 10
	b.UnavailableDates = pq.StringArray{"2024-06-10"}

	c := published("c", "Studio Loft")
	c.Location = "Makati"
	c.BaseRate = 800
	c.Rating = 3.8
	c.MaxGuests = 2

	d := published("d", "Mountain House")
	d.Location = "Baguio"
	d.Province = "Benguet"
	d.BaseRate = 2000
	d.DiscountPercent = 60
	d.Rating = 4.5
	d.MaxGuests = 6

	e := published("e", "Garden condo")
	e.Location = "Imus, Cavite"
	e.BaseRate = 3000
	e.Rating = 4.1
	e.MaxGuests = 3

	draft := published("draft", "Draft Apartment")
	draft.Status = model.StatusDraft

	archived := published("archived", "Archived Villa")
	archived.Archived = true

	return []model.Listing{a, b, c, d, e, draft, archived}
}

func TestQuery_VisibilityOnly(t *testing.T) {
	res, err := search.Query(fixture(), search.Params{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(res.Items))
	assert.Equal(t, 5, res.TotalMatched)
	assert.Equal(t, 1, res.TotalPages)

	for _, l := range res.Items {
		assert.Equal(t, model.StatusPublished, l.Status)
		assert.False(t, l.Archived)
	}
}

func TestQuery_Filters(t *testing.T) {
	buckets := search.DefaultBuckets(model.KindHome)

	tests := []struct {
		name     string
		params   search.Params
		expected []string
	}{
		{
			name:     "text matches title case-insensitively",
			params:   search.Params{Query: "  VILLA "},
			expected: []string{"b"},
		},
		{
			name:     "text matches province or location",
			params:   search.Params{Query: "cavite"},
			expected: []string{"a", "e"},
		},
		{
			name:     "capacity drops smaller listings",
			params:   search.Params{MinGuests: 5},
			expected: []string{"b", "d"},
		},
		{
			name:     "capacity keeps exact match",
			params:   search.Params{MinGuests: 4},
			expected: []string{"a", "b", "d"},
		},
		{
			name:     "category",
			params:   search.Params{Category: search.CategoryCondo},
			expected: []string{"e"},
		},
		{
			name:     "category all is ignored",
			params:   search.Params{Category: search.CategoryAll},
			expected: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:     "low bucket uses effective rate",
			params:   search.Params{PriceBucket: "low", Buckets: buckets},
			expected: []string{"c", "d"},
		},
		{
			name:     "top bucket starts at its boundary",
			params:   search.Params{PriceBucket: "high", Buckets: buckets},
			expected: []string{"b", "e"},
		},
		{
			name:     "bucket all is ignored",
			params:   search.Params{PriceBucket: search.BucketAll},
			expected: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:     "availability drops blocked listings",
			params:   search.Params{Start: dayPtr("2024-06-09"), End: dayPtr("2024-06-11")},
			expected: []string{"a", "c", "d", "e"},
		},
		{
			name:     "open range skips availability",
			params:   search.Params{Start: dayPtr("2024-06-09")},
			expected: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:     "filters combine",
			params:   search.Params{Query: "cavite", MinGuests: 4},
			expected: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := search.Query(fixture(), tt.params)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(res.Items))
			assert.Equal(t, len(tt.expected), res.TotalMatched)
		})
	}
}

func TestQuery_Sort(t *testing.T) {
	tests := []struct {
		name     string
		sort     string
		expected []string
	}{
		{name: "featured keeps filter order", sort: search.SortFeatured, expected: []string{"a", "b", "c", "d", "e"}},
		{name: "empty sort is featured", sort: "", expected: []string{"a", "b", "c", "d", "e"}},
		{name: "price ascending", sort: search.SortPriceAsc, expected: []string{"c", "d", "a", "e", "b"}},
		{name: "price descending", sort: search.SortPriceDesc, expected: []string{"b", "e", "a", "c", "d"}},
		{name: "rating keeps ties in order", sort: search.SortRating, expected: []string{"b", "a", "d", "e", "c"}},
		{name: "title", sort: search.SortTitle, expected: []string{"b", "a", "e", "d", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := search.Query(fixture(), search.Params{Sort: tt.sort})

			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(res.Items))
		})
	}
}

func TestQuery_TitleSortIsLocaleAware(t *testing.T) {
	listings := []model.Listing{
		published("1", "zebra lodge"),
		published("2", "Émile's place"),
		published("3", "apple farm"),
	}

	res, err := search.Query(listings, search.Params{Sort: search.SortTitle})
	require.NoError(t, err)

	assert.Equal(t, []string{"3", "2", "1"}, ids(res.Items))
}

func TestQuery_DoesNotModifyInput(t *testing.T) {
	listings := fixture()
	before := ids(listings)

	_, err := search.Query(listings, search.Params{Sort: search.SortPriceDesc})
	require.NoError(t, err)

	assert.Equal(t, before, ids(listings))
}

func TestQuery_Idempotent(t *testing.T) {
	listings := fixture()
	params := search.Params{Query: "a", Sort: search.SortRating, Page: 1, PageSize: 2}

	first, err := search.Query(listings, params)
	require.NoError(t, err)

	second, err := search.Query(listings, params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQuery_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		size       int
		expected   []string
		totalPages int
	}{
		{name: "first page", page: 1, size: 2, expected: []string{"a", "b"}, totalPages: 3},
		{name: "last partial page", page: 3, size: 2, expected: []string{"e"}, totalPages: 3},
		{name: "past the end", page: 4, size: 2, expected: []string{}, totalPages: 3},
		{name: "no page size", page: 1, size: 0, expected: []string{"a", "b", "c", "d", "e"}, totalPages: 1},
		{name: "no page", page: 0, size: 2, expected: []string{"a", "b", "c", "d", "e"}, totalPages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := search.Query(fixture(), search.Params{Page: tt.page, PageSize: tt.size})

			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(res.Items))
			assert.Equal(t, 5, res.TotalMatched)
			assert.Equal(t, tt.totalPages, res.TotalPages)
			assert.Equal(t, tt.page, res.Page)
		})
	}
}

func TestQuery_EmptyCollection(t *testing.T) {
	res, err := search.Query(nil, search.Params{Query: "anything", Page: 1, PageSize: 10})

	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.TotalMatched)
	assert.Zero(t, res.TotalPages)
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params search.Params
		target error
	}{
		{
			name:   "inverted range",
			params: search.Params{Start: dayPtr("2024-06-15"), End: dayPtr("2024-06-13")},
			target: search.ErrInvalidRange,
		},
		{
			name:   "unknown bucket",
			params: search.Params{PriceBucket: "luxury", Buckets: search.DefaultBuckets(model.KindHome)},
		},
		{
			name:   "unknown sort",
			params: search.Params{Sort: "distance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := search.Query(fixture(), tt.params)

			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))

			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target))
			}
		})
	}
}

func TestQuery_InvertedRangeOnEmptyCollection(t *testing.T) {
	_, err := search.Query(nil, search.Params{Start: dayPtr("2024-06-15"), End: dayPtr("2024-06-13")})

	assert.ErrorIs(t, err, search.ErrInvalidRange)
}

func TestQuery_TitleSortIgnoresCase(t *testing.T) {
	listings := []model.Listing{
		published("1", "cabin retreat"),
		published("2", "Beach house"),
		published("3", "apple farm"),
	}

	res, err := search.Query(listings, search.Params{Sort: search.SortTitle})
	require.NoError(t, err)

	assert.Equal(t, []string{"3", "2", "1"}, ids(res.Items))
}

func TestPaginate(t *testing.T) {
	listings := []model.Listing{published("1", "a"), published("2", "b"), published("3", "c")}

	tests := []struct {
		name string
		page int
		size int
		want []string
	}{
		{name: "first page", page: 1, size: 2, want: []string{"1", "2"}},
		{name: "partial last page", page: 2, size: 2, want: []string{"3"}},
		{name: "past the end", page: 3, size: 2, want: []string{}},
		{name: "zero page keeps all", page: 0, size: 2, want: []string{"1", "2", "3"}},
		{name: "zero size keeps all", page: 1, size: 0, want: []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(search.Paginate(listings, tt.page, tt.size)))
		})
	}
}
