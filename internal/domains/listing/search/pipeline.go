package search

import (
	"math"
	"stayhub/internal/domains/listing/model"
	"stayhub/shared/failure"
	"strings"
	"time"
)

// Params describes one search over a listing collection.
type Params struct {
	Query       string
	MinGuests   int
	Start       *time.Time
	End         *time.Time
	Category    string
	PriceBucket string
	Buckets     Buckets
	Sort        string
	Page        int
	PageSize    int
}

type Result struct {
	Items        []model.Listing
	TotalMatched int
	TotalPages   int
	Page         int
	PageSize     int
}

type stage func(model.Listing) (bool, error)

// Query filters, sorts and paginates listings. The input slice is never modified.
//
// Stages run in a fixed order: visibility, text, capacity, category, price
// bucket, availability, sort, pagination. Visibility is always applied.
func Query(listings []model.Listing, params Params) (Result, error) {
	result := Result{Page: params.Page, PageSize: params.PageSize}

	stages, err := buildStages(params)
	if err != nil {
		return result, err
	}

	order, err := comparator(params.Sort)
	if err != nil {
		return result, err
	}

	matched := make([]model.Listing, 0, len(listings))

next:
	for _, listing := range listings {
		for _, keep := range stages {
			ok, err := keep(listing)
			if err != nil {
				return result, err
			}

			if !ok {
				continue next
			}
		}

		matched = append(matched, listing)
	}

	sortStable(matched, order)

	result.TotalMatched = len(matched)
	result.TotalPages = totalPages(len(matched), params.PageSize)
	result.Items = Paginate(matched, params.Page, params.PageSize)

	return result, nil
}

func buildStages(params Params) ([]stage, error) {
	stages := []stage{visible}

	if query := strings.ToLower(strings.TrimSpace(params.Query)); query != "" {
		stages = append(stages, func(l model.Listing) (bool, error) {
			return matchesText(l, query), nil
		})
	}

	if params.MinGuests > 0 {
		stages = append(stages, func(l model.Listing) (bool, error) {
			return l.MaxGuests >= params.MinGuests, nil
		})
	}

	if category := strings.ToLower(strings.TrimSpace(params.Category)); category != "" && category != CategoryAll {
		stages = append(stages, func(l model.Listing) (bool, error) {
			return DeriveCategory(l) == category, nil
		})
	}

	if name := strings.TrimSpace(params.PriceBucket); name != "" && !strings.EqualFold(name, BucketAll) {
		bucket, ok := params.Buckets.Find(name)
		if !ok {
			return nil, failure.BadRequestFromString("unknown price bucket: " + name)
		}

		stages = append(stages, func(l model.Listing) (bool, error) {
			return bucket.Contains(l.EffectiveRate()), nil
		})
	}

	if params.Start != nil && params.End != nil {
		if Day(*params.Start).After(Day(*params.End)) {
			return nil, ErrInvalidRange
		}

		stages = append(stages, func(l model.Listing) (bool, error) {
			return IsRangeBookable(NewDateSet(l.BlockedDays()...), params.Start, params.End)
		})
	}

	return stages, nil
}

func visible(l model.Listing) (bool, error) {
	return l.Visible(), nil
}

func matchesText(l model.Listing, query string) bool {
	for _, field := range []string{l.Title, l.Province, l.Location} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}

	return false
}

func totalPages(total, size int) int {
	switch {
	case total == 0:
		return 0
	case size <= 0:
		return 1
	default:
		return int(math.Ceil(float64(total) / float64(size)))
	}
}

// Paginate returns the 1-indexed page of listings. A non-positive page or
// size returns the input unchanged and a page past the end is empty.
func Paginate(listings []model.Listing, page, size int) []model.Listing {
	if page <= 0 || size <= 0 {
		return listings
	}

	start := (page - 1) * size
	if start >= len(listings) {
		return []model.Listing{}
	}

	end := min(start+size, len(listings))

	return listings[start:end]
}

// Visible returns the listings guests may see, in their original order.
func Visible(listings []model.Listing) []model.Listing {
	res := make([]model.Listing, 0, len(listings))

	for _, listing := range listings {
		if listing.Visible() {
			res = append(res, listing)
		}
	}

	return res
}

// ClampPage keeps page within [1, max(1, totalPages)].
func ClampPage(page, totalPages int) int {
	return min(max(page, 1), max(totalPages, 1))
}
