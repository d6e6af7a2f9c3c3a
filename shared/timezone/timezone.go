package timezone

import (
	"fmt"
	"stayhub/config"
	"time"

	"github.com/rs/zerolog/log"
)

var appLocation = time.UTC

func init() {
	name := config.Get().App.Timezone
	if name == "" {
		log.Warn().Msg("No timezone configured, using UTC")

		return
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Error().Err(err).Str("timezone", name).Msg("Failed to load timezone, using UTC. Use an IANA name such as Asia/Jakarta")

		return
	}

	appLocation = loc

	log.Info().Str("timezone", loc.String()).Msg("Application timezone initialized")
}

// Location is the configured application timezone.
func Location() *time.Location {
	return appLocation
}

// Now is the wall clock in the application timezone. Audit columns use it.
func Now() time.Time {
	return time.Now().In(appLocation)
}

// Format renders t in the application timezone.
func Format(t time.Time, layout string) string {
	return t.In(appLocation).Format(layout)
}

// ParseDay parses a YYYY-MM-DD calendar day. The result is midnight UTC so
// days compare equal whatever the application timezone is.
func ParseDay(value string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", value, err)
	}

	return day, nil
}

// Today is the current calendar day in the application timezone, as midnight UTC.
func Today() time.Time {
	now := Now()

	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
