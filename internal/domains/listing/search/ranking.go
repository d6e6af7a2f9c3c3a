package search

import (
	"cmp"
	"slices"
	"stayhub/internal/domains/listing/model"
	"stayhub/shared/failure"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	SortFeatured  = "featured"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortTitle     = "title"
)

var SortKeys = []string{SortFeatured, SortPriceAsc, SortPriceDesc, SortRating, SortTitle}

// compare returns a negative number when a sorts before b. A nil compare keeps the input order.
type compare func(a, b model.Listing) int

func comparator(key string) (compare, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", SortFeatured:
		return nil, nil
	case SortPriceAsc:
		return func(a, b model.Listing) int {
			return cmp.Compare(a.EffectiveRate(), b.EffectiveRate())
		}, nil
	case SortPriceDesc:
		return func(a, b model.Listing) int {
			return cmp.Compare(b.EffectiveRate(), a.EffectiveRate())
		}, nil
	case SortRating:
		return func(a, b model.Listing) int {
			return cmp.Compare(b.Rating, a.Rating)
		}, nil
	case SortTitle:
		// A collator keeps internal buffers, so every search gets its own.
		collator := collate.New(language.English)

		return func(a, b model.Listing) int {
			return collator.CompareString(a.Title, b.Title)
		}, nil
	default:
		return nil, failure.BadRequestFromString("unknown sort key: " + key)
	}
}

func sortStable(listings []model.Listing, order compare) {
	if order == nil {
		return
	}

	slices.SortStableFunc(listings, order)
}

// Suggested ranks visible listings by completed bookings and keeps the first n.
// Listings with equal counts keep their input order. n <= 0 keeps all of them.
func Suggested(listings []model.Listing, n int) []model.Listing {
	ranked := Visible(listings)

	slices.SortStableFunc(ranked, func(a, b model.Listing) int {
		return cmp.Compare(b.CompletedBookingsCount, a.CompletedBookingsCount)
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	return ranked
}

// NearMe keeps visible listings whose province equals the given province or
// whose location mentions it. Comparison is trimmed and case-insensitive.
func NearMe(listings []model.Listing, province string, limit int) []model.Listing {
	province = strings.ToLower(strings.TrimSpace(province))
	if province == "" {
		return []model.Listing{}
	}

	near := make([]model.Listing, 0)

	for _, listing := range listings {
		if !listing.Visible() {
			continue
		}

		sameProvince := strings.ToLower(strings.TrimSpace(listing.Province)) == province
		if !sameProvince && !strings.Contains(strings.ToLower(listing.Location), province) {
			continue
		}

		near = append(near, listing)
		if limit > 0 && len(near) == limit {
			break
		}
	}

	return near
}
