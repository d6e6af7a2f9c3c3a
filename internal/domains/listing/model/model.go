package model

import (
	"stayhub/shared/model"
	"time"

	"github.com/lib/pq"
)

const (
	TableName  = "listings"
	EntityName = "listing"

	FieldID                     = "id"
	FieldHostID                 = "host_id"
	FieldTitle                  = "title"
	FieldKind                   = "kind"
	FieldLocation               = "location"
	FieldProvince               = "province"
	FieldLatitude               = "latitude"
	FieldLongitude              = "longitude"
	FieldImage                  = "image"
	FieldUnavailableDates       = "unavailable_dates"
	FieldCompletedBookingsCount = "completed_bookings_count"
	FieldStatus                 = "status"
	FieldArchived               = "archived"
)

const (
	KindHome       = "home"
	KindExperience = "experience"
	KindService    = "service"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Listing struct {
	ID                     string         `db:"id"`
	HostID                 string         `db:"host_id"`
	Title                  string         `db:"title"`
	Description            string         `db:"description"`
	Kind                   string         `db:"kind"`
	Location               string         `db:"location"`
	Province               string         `db:"province"`
	Latitude               *float64       `db:"latitude"`
	Longitude              *float64       `db:"longitude"`
	Image                  string         `db:"image"`
	BaseRate               float64        `db:"base_rate"`
	DiscountPercent        float64        `db:"discount_percent"`
	Rating                 float64        `db:"rating"`
	Bedrooms               int            `db:"bedrooms"`
	Bathrooms              float64        `db:"bathrooms"`
	MaxGuests              int            `db:"max_guests"`
	UnavailableDates       pq.StringArray `db:"unavailable_dates"`
	CompletedBookingsCount int64          `db:"completed_bookings_count"`
	Status                 string         `db:"status"`
	Archived               bool           `db:"archived"`
	model.Metadata
}

// Visible reports whether guests may see the listing.
func (l Listing) Visible() bool {
	return l.Status == StatusPublished && !l.Archived
}

// EffectiveRate is the base rate after the discount is applied.
func (l Listing) EffectiveRate() float64 {
	return l.BaseRate * (1 - l.DiscountPercent/100)
}

// BlockedDays parses the stored unavailable dates. Entries that are not
// calendar days are skipped; Postgres DATE[] values never produce them.
func (l Listing) BlockedDays() []time.Time {
	days := make([]time.Time, 0, len(l.UnavailableDates))

	for _, raw := range l.UnavailableDates {
		if len(raw) > len(time.DateOnly) {
			raw = raw[:len(time.DateOnly)]
		}

		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			continue
		}

		days = append(days, day)
	}

	return days
}

const (
	EventListingPublished = "listing.published"
	EventListingArchived  = "listing.archived"
)

// Event is published to the listing events topic after a lifecycle change.
type Event struct {
	Type       string    `json:"type"`
	ListingID  string    `json:"listing_id"`
	HostID     string    `json:"host_id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}
