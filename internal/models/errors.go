package models

import "errors"

// Domain errors surfaced by the reservation engine. The dispatcher
// translates every one of them into a single BAD_REQUEST datagram; the
// distinctions exist for logs and tests.
var (
	ErrNoTicketsRequested = errors.New("ticket count must be at least 1")
	ErrTooManyTickets     = errors.New("ticket count exceeds the datagram limit")
	ErrUnknownEvent       = errors.New("unknown event id")
	ErrSoldOut            = errors.New("not enough tickets remaining")
	ErrUnknownReservation = errors.New("unknown reservation id")
	ErrBadCookie          = errors.New("cookie does not match")
	ErrReservationExpired = errors.New("reservation has expired")
)
