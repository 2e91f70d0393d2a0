package models

// CookieLength is the fixed size of a reservation's secret cookie.
const CookieLength = 48

// TicketGrant records whether a reservation's tickets have been issued.
// A pending grant can still be reclaimed by the expiration sweep; a
// collected grant is permanent and pins the first ticket number the
// codes are derived from.
type TicketGrant struct {
	Collected   bool
	FirstTicket uint64
}

// Reservation is a hold on TicketCount tickets of one event. ExpiresAt
// is an absolute second on the server clock; once it is reached an
// uncollected reservation is reclaimed and its id stops resolving.
type Reservation struct {
	ID          uint32
	EventID     uint32
	TicketCount uint16
	Cookie      []byte
	ExpiresAt   uint64
	Grant       TicketGrant
}
