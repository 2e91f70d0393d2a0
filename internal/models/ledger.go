package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ledger entry kinds.
const (
	LedgerReserved = "reserved"
	LedgerRedeemed = "redeemed"
	LedgerExpired  = "expired"
)

// LedgerEntry is one row of the optional issuance ledger. The ledger is
// append-only operational history: it is never read back at startup and
// has no effect on protocol state.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:issuance_ledger"`

	ID            string    `bun:"id,pk"`
	Kind          string    `bun:"kind,notnull"`
	ReservationID int64     `bun:"reservation_id,notnull"`
	EventID       int64     `bun:"event_id,notnull"`
	TicketCount   int64     `bun:"ticket_count,notnull"`
	FirstTicket   int64     `bun:"first_ticket"`
	ExpiresAt     int64     `bun:"expires_at"`
	RecordedAt    time.Time `bun:"recorded_at,notnull"`
}
