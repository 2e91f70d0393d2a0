package booking

import (
	"bytes"

	"github.com/puznanski/SIK-ticketserver/internal/catalogue"
	"github.com/puznanski/SIK-ticketserver/internal/models"
	"github.com/puznanski/SIK-ticketserver/internal/protocol"
	"github.com/puznanski/SIK-ticketserver/internal/utils"
)

// FirstReservationID seeds the reservation id counter. It keeps
// reservation ids disjoint from event ids (which occupy the catalogue
// index range), so a BAD_REQUEST echo field can carry either.
const FirstReservationID = 1_000_000

// Ledger receives issuance history. The engine calls it synchronously;
// implementations must not block on anything the protocol waits for.
type Ledger interface {
	ReservationCreated(reservation *models.Reservation)
	ReservationRedeemed(reservation *models.Reservation)
	ReservationExpired(reservation *models.Reservation)
}

// Service is the reservation engine. It owns the catalogue, the
// reservation store and the expiration queue; all access happens from
// the dispatcher's goroutine, so there is no locking anywhere in here.
type Service struct {
	Catalogue *catalogue.Catalogue
	Timeout   uint64
	Ledger    Ledger

	reservations map[uint32]*models.Reservation

	queue expiryQueue

	// nextReservationID only grows; ids are never reused, even after
	// the reservation they named has been reclaimed.
	nextReservationID uint32

	// nextTicket is the first ticket number the next collected
	// reservation will receive. Seeded at 1: ticket number 0 is never
	// issued.
	nextTicket uint64

	expiredTotal uint64
}

// NewService builds an engine over a loaded catalogue. ledger may be
// nil to disable issuance history.
func NewService(cat *catalogue.Catalogue, timeout uint64, ledger Ledger) *Service {
	return &Service{
		Catalogue:         cat,
		Timeout:           timeout,
		Ledger:            ledger,
		reservations:      make(map[uint32]*models.Reservation),
		nextReservationID: FirstReservationID,
		nextTicket:        1,
	}
}

// ListEvents returns the longest prefix of the catalogue whose EVENTS
// response fits in one datagram, together with that response's encoded
// size. It never fails: a catalogue too large to enumerate is simply
// cut off at the budget.
func (s *Service) ListEvents() ([]*models.Event, int) {
	events := s.Catalogue.Events()
	size := 1
	count := 0
	for _, event := range events {
		entry := protocol.EventEntrySize(event)
		if size+entry > protocol.MaxDatagram {
			break
		}
		size += entry
		count++
	}
	return events[:count], size
}

// Reserve holds ticketCount tickets of the given event until the
// reservation times out or is redeemed. Every rejection is one of the
// models sentinel errors; the caller answers all of them with a single
// BAD_REQUEST.
func (s *Service) Reserve(eventID uint32, ticketCount uint16, now uint64) (*models.Reservation, error) {
	if ticketCount == 0 {
		return nil, models.ErrNoTicketsRequested
	}
	if int(ticketCount) > protocol.MaxTicketsPerReservation {
		return nil, models.ErrTooManyTickets
	}
	event, err := s.Catalogue.Get(eventID)
	if err != nil {
		return nil, err
	}
	if event.Remaining < ticketCount {
		return nil, models.ErrSoldOut
	}

	event.Remaining -= ticketCount

	reservation := &models.Reservation{
		ID:          s.nextReservationID,
		EventID:     eventID,
		TicketCount: ticketCount,
		Cookie:      utils.GenerateCookie(),
		ExpiresAt:   now + s.Timeout,
	}
	s.nextReservationID++

	s.reservations[reservation.ID] = reservation
	s.queue.push(expiryEntry{reservationID: reservation.ID, expiresAt: reservation.ExpiresAt})

	if s.Ledger != nil {
		s.Ledger.ReservationCreated(reservation)
	}
	return reservation, nil
}

// Redeem exchanges a reservation id and its cookie for the ticket
// codes. The first successful call pins the ticket numbers; every
// later call with the same cookie before the expiration second returns
// the same codes, so a lost TICKETS datagram is recoverable by asking
// again. Once ExpiresAt is reached, Redeem is refused even for a
// collected reservation.
func (s *Service) Redeem(reservationID uint32, cookie []byte, now uint64) ([]string, error) {
	reservation, ok := s.reservations[reservationID]
	if !ok {
		return nil, models.ErrUnknownReservation
	}
	if !bytes.Equal(cookie, reservation.Cookie) {
		return nil, models.ErrBadCookie
	}
	if reservation.ExpiresAt <= now {
		return nil, models.ErrReservationExpired
	}

	if !reservation.Grant.Collected {
		reservation.Grant = models.TicketGrant{Collected: true, FirstTicket: s.nextTicket}
		s.nextTicket += uint64(reservation.TicketCount)
		if s.Ledger != nil {
			s.Ledger.ReservationRedeemed(reservation)
		}
	}

	codes := make([]string, reservation.TicketCount)
	for i := range codes {
		codes[i] = utils.TicketCode(reservation.Grant.FirstTicket + uint64(i))
	}
	return codes, nil
}

// Sweep reclaims every reservation whose deadline has passed. A
// reservation that was collected in time becomes permanent and is left
// in the store; an uncollected one returns its tickets to the event and
// is erased. Returns the number of reservations reclaimed.
func (s *Service) Sweep(now uint64) int {
	reclaimed := 0
	for s.queue.len() > 0 {
		if s.queue.peek().expiresAt > now {
			break
		}
		entry := s.queue.pop()

		reservation, ok := s.reservations[entry.reservationID]
		if !ok {
			continue
		}
		if reservation.Grant.Collected {
			continue
		}

		if event, err := s.Catalogue.Get(reservation.EventID); err == nil {
			event.Remaining += reservation.TicketCount
		}
		delete(s.reservations, entry.reservationID)
		reclaimed++
		s.expiredTotal++

		if s.Ledger != nil {
			s.Ledger.ReservationExpired(reservation)
		}
	}
	return reclaimed
}
