package model

import (
	"strings"
	"time"
)

const (
	EntityName        = "reward entry"
	TableName         = "reward_entries"
	BalanceTableName  = "reward_balances"
	ReasonBookingDone = "booking_completed"
)

const (
	FieldID           = "id"
	FieldHostID       = "host_id"
	FieldDelta        = "delta"
	FieldReason       = "reason"
	FieldBalanceAfter = "balance_after"
)

// Entry is one append-only ledger row. BalanceAfter is the host balance
// immediately after Delta was applied.
type Entry struct {
	ID           string    `db:"id"`
	HostID       string    `db:"host_id"`
	Delta        int64     `db:"delta"`
	Reason       string    `db:"reason"`
	BalanceAfter int64     `db:"balance_after"`
	CreatedAt    time.Time `db:"created_at"`
	CreatedBy    string    `db:"created_by"`
}

// BookingCompletedReason is the ledger reason for points earned by a completed booking.
func BookingCompletedReason(bookingID string) string {
	return ReasonBookingDone + ":" + strings.TrimSpace(bookingID)
}
