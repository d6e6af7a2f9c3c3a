// Package timezone pins wall-clock times to the APP_TIMEZONE location and
// calendar days to midnight UTC.
//
// Audit timestamps come from Now and are rendered with Format. Blocked dates
// and stay ranges are days, not instants: they go through ParseDay and Today
// so that "2026-03-01" is the same value on every server.
package timezone
