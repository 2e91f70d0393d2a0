package server

import (
	"fmt"
	"net"

	"github.com/puznanski/SIK-ticketserver/internal/booking"
	"github.com/puznanski/SIK-ticketserver/internal/clock"
	"github.com/puznanski/SIK-ticketserver/internal/logger"
	"github.com/puznanski/SIK-ticketserver/internal/protocol"
)

// receiveBufferLength is one byte larger than the largest valid client
// request. The kernel truncates an oversized datagram into the buffer,
// so with an exactly-sized buffer a 54-byte datagram would be
// indistinguishable from a valid 53-byte one; the spare byte makes the
// length mismatch observable and the datagram droppable.
const receiveBufferLength = protocol.MaxRequestLength + 1

// Dispatcher runs the single-threaded receive loop: one datagram in,
// sweep, dispatch by message id, at most one datagram out. All engine
// state is touched only from Run's goroutine.
type Dispatcher struct {
	Conn   PacketConn
	Engine *booking.Service
	Clock  clock.Clock
	Logger *logger.Logger
	Stats  *StatsBoard

	datagrams uint64
	dropped   uint64
	rejected  uint64
}

// Run loops until the socket fails. A receive or send error is fatal:
// the caller logs it and the process exits non-zero.
func (d *Dispatcher) Run() error {
	buf := make([]byte, receiveBufferLength)
	for {
		n, peer, err := d.Conn.ReceiveOne(buf)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		now := d.Clock.Now()
		if reclaimed := d.Engine.Sweep(now); reclaimed > 0 {
			d.Logger.LogSweep(fmt.Sprintf("reclaimed %d expired reservations", reclaimed))
		}

		d.datagrams++
		response := d.handle(buf[:n], now, peer)
		if response != nil {
			if err := d.Conn.SendTo(response, peer); err != nil {
				return fmt.Errorf("send to %v: %w", peer, err)
			}
		}

		d.publish()
	}
}

// handle inspects one datagram and returns the response to send, or
// nil for a silent drop.
func (d *Dispatcher) handle(datagram []byte, now uint64, peer net.Addr) []byte {
	if len(datagram) == 0 {
		d.dropped++
		return nil
	}

	switch datagram[0] {
	case protocol.MessageIDGetEvents:
		if len(datagram) != protocol.GetEventsLength {
			break
		}
		events, size := d.Engine.ListEvents()
		d.Logger.LogProtocol("recv", fmt.Sprintf("GET_EVENTS from %v: %d events, %d bytes", peer, len(events), size))
		return protocol.EncodeEvents(events)

	case protocol.MessageIDGetReservation:
		eventID, ticketCount, err := protocol.DecodeGetReservation(datagram)
		if err != nil {
			break
		}
		reservation, err := d.Engine.Reserve(eventID, ticketCount, now)
		if err != nil {
			d.rejected++
			d.Logger.LogProtocol("recv", fmt.Sprintf("GET_RESERVATION from %v: event %d x%d rejected: %v", peer, eventID, ticketCount, err))
			return protocol.EncodeBadRequest(eventID)
		}
		d.Logger.LogReservation("NEW", reservation.ID, fmt.Sprintf("event %d, %d tickets, expires %d", eventID, ticketCount, reservation.ExpiresAt))
		return protocol.EncodeReservation(reservation)

	case protocol.MessageIDGetTickets:
		reservationID, cookie, err := protocol.DecodeGetTickets(datagram)
		if err != nil {
			break
		}
		codes, err := d.Engine.Redeem(reservationID, cookie, now)
		if err != nil {
			d.rejected++
			d.Logger.LogProtocol("recv", fmt.Sprintf("GET_TICKETS from %v: reservation %d rejected: %v", peer, reservationID, err))
			return protocol.EncodeBadRequest(reservationID)
		}
		d.Logger.LogReservation("REDEEM", reservationID, fmt.Sprintf("%d ticket codes issued", len(codes)))
		return protocol.EncodeTickets(reservationID, codes)
	}

	d.dropped++
	d.Logger.LogProtocol("drop", fmt.Sprintf("%d bytes from %v, message id %d", len(datagram), peer, datagram[0]))
	return nil
}

func (d *Dispatcher) publish() {
	if d.Stats == nil {
		return
	}
	d.Stats.Publish(Stats{
		Datagrams: d.datagrams,
		Dropped:   d.dropped,
		Rejected:  d.rejected,
		Snapshot:  d.Engine.Snapshot(),
	})
}
