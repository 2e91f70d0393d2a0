package booking

import "github.com/puznanski/SIK-ticketserver/internal/models"

// EventStatus is one catalogue entry as exposed to the operational
// surface.
type EventStatus struct {
	ID          uint32 `json:"id"`
	Description string `json:"description"`
	Remaining   uint16 `json:"remaining"`
	Initial     uint16 `json:"initial"`
}

// Snapshot is a copy of the engine's aggregate state, safe to hand to
// other goroutines.
type Snapshot struct {
	Events           []EventStatus `json:"events"`
	LiveReservations int           `json:"live_reservations"`
	ReservationsMade uint64        `json:"reservations_made"`
	TicketsIssued    uint64        `json:"tickets_issued"`
	Expired          uint64        `json:"expired"`
}

// Snapshot copies the engine's current aggregate state. Must be called
// from the dispatcher's goroutine, like every other method.
func (s *Service) Snapshot() Snapshot {
	events := s.Catalogue.Events()
	statuses := make([]EventStatus, len(events))
	for i, event := range events {
		statuses[i] = EventStatus{
			ID:          event.ID,
			Description: event.Description,
			Remaining:   event.Remaining,
			Initial:     event.Initial,
		}
	}
	return Snapshot{
		Events:           statuses,
		LiveReservations: len(s.reservations),
		ReservationsMade: uint64(s.nextReservationID - FirstReservationID),
		TicketsIssued:    s.nextTicket - 1,
		Expired:          s.expiredTotal,
	}
}

// liveFor sums the ticket counts of the reservations still in the
// store for one event. Together with the event's remaining counter it
// must always add up to the initial supply; tests lean on this.
func (s *Service) liveFor(eventID uint32) uint32 {
	var total uint32
	for _, reservation := range s.reservations {
		if reservation.EventID == eventID {
			total += uint32(reservation.TicketCount)
		}
	}
	return total
}

// Reservation looks up a live reservation by id. Exposed for tests;
// the protocol itself only reaches reservations through Redeem.
func (s *Service) Reservation(id uint32) (*models.Reservation, bool) {
	reservation, ok := s.reservations[id]
	return reservation, ok
}
