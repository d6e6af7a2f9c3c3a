package search

import (
	"errors"
	"fmt"
	"stayhub/internal/domains/listing/model"
	"strconv"
	"strings"
)

const BucketAll = "all"

var errMalformedBucket = errors.New("price bucket must look like name:min-max")

// Bucket is the half-open price range [Min, Max). A nil Max leaves the bucket open above Min.
type Bucket struct {
	Name string   `json:"name"`
	Min  float64  `json:"min"`
	Max  *float64 `json:"max,omitempty"`
}

func (b Bucket) Contains(rate float64) bool {
	if rate < b.Min {
		return false
	}

	return b.Max == nil || rate < *b.Max
}

type Buckets []Bucket

func (b Buckets) Find(name string) (Bucket, bool) {
	for _, bucket := range b {
		if strings.EqualFold(bucket.Name, name) {
			return bucket, true
		}
	}

	return Bucket{}, false
}

func (b Buckets) Names() []string {
	names := make([]string, len(b))
	for i, bucket := range b {
		names[i] = bucket.Name
	}

	return names
}

// ParseBuckets reads a comma separated list such as "low:0-1000,mid:1000-3000,high:3000-".
func ParseBuckets(raw string) (Buckets, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var buckets Buckets

	for _, part := range strings.Split(raw, ",") {
		name, bounds, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%q: %w", part, errMalformedBucket)
		}

		lower, upper, ok := strings.Cut(bounds, "-")
		if !ok {
			return nil, fmt.Errorf("%q: %w", part, errMalformedBucket)
		}

		bucket := Bucket{Name: strings.TrimSpace(name)}

		minValue, err := strconv.ParseFloat(strings.TrimSpace(lower), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: invalid lower bound: %w", part, err)
		}

		bucket.Min = minValue

		if upper = strings.TrimSpace(upper); upper != "" {
			maxValue, err := strconv.ParseFloat(upper, 64)
			if err != nil {
				return nil, fmt.Errorf("%q: invalid upper bound: %w", part, err)
			}

			if maxValue <= minValue {
				return nil, fmt.Errorf("%q: upper bound must be greater than lower bound: %w", part, errMalformedBucket)
			}

			bucket.Max = &maxValue
		}

		buckets = append(buckets, bucket)
	}

	return buckets, nil
}

func bound(v float64) *float64 {
	return &v
}

// DefaultBuckets returns the price ranges used when none are configured for a kind.
func DefaultBuckets(kind string) Buckets {
	switch kind {
	case model.KindExperience:
		return Buckets{
			{Name: "low", Min: 0, Max: bound(500)},
			{Name: "mid", Min: 500, Max: bound(1500)},
			{Name: "high", Min: 1500},
		}
	default:
		return Buckets{
			{Name: "low", Min: 0, Max: bound(1000)},
			{Name: "mid", Min: 1000, Max: bound(3000)},
			{Name: "high", Min: 3000},
		}
	}
}
