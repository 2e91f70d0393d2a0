package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/puznanski/SIK-ticketserver/internal/models"
	"github.com/puznanski/SIK-ticketserver/internal/utils"
)

// Message id constants. The leading byte of every datagram names the
// message; everything after it is a byte-packed big-endian body with no
// padding.
const (
	MessageIDGetEvents      byte = 1
	MessageIDEvents         byte = 2
	MessageIDGetReservation byte = 3
	MessageIDReservation    byte = 4
	MessageIDGetTickets     byte = 5
	MessageIDTickets        byte = 6
	MessageIDBadRequest     byte = 255
)

// MaxDatagram is the largest datagram the server will send or accept:
// the UDP payload ceiling of 65535 minus the 8-byte UDP header and the
// 20-byte IP header.
const MaxDatagram = 65507

// Exact request lengths. A client datagram whose length does not match
// the expected size for its message id is malformed and dropped.
const (
	GetEventsLength      = 1
	GetReservationLength = 1 + 4 + 2
	GetTicketsLength     = 1 + 4 + models.CookieLength

	// MaxRequestLength is the size of the largest valid client request
	// (GET_TICKETS).
	MaxRequestLength = GetTicketsLength
)

// Fixed response lengths and the per-item sizes of the variable ones.
const (
	ReservationLength    = 1 + 4 + 4 + 2 + models.CookieLength + 8
	BadRequestLength     = 1 + 4
	TicketsHeaderLength  = 1 + 4 + 2
	eventEntryHeaderSize = 4 + 2 + 1
)

// MaxTicketsPerReservation is the largest ticket count whose TICKETS
// response still fits in one datagram.
const MaxTicketsPerReservation = (MaxDatagram - TicketsHeaderLength) / utils.TicketCodeLength

// ErrMalformed marks a datagram that is not one of the recognised
// client requests. The dispatcher drops these with no response.
var ErrMalformed = errors.New("malformed datagram")

// EventEntrySize returns the encoded size of one event entry in an
// EVENTS response: id, remaining, description length, description.
func EventEntrySize(event *models.Event) int {
	return eventEntryHeaderSize + len(event.Description)
}

// DecodeGetReservation parses a full GET_RESERVATION datagram.
func DecodeGetReservation(datagram []byte) (eventID uint32, ticketCount uint16, err error) {
	if len(datagram) != GetReservationLength || datagram[0] != MessageIDGetReservation {
		return 0, 0, ErrMalformed
	}
	eventID = binary.BigEndian.Uint32(datagram[1:5])
	ticketCount = binary.BigEndian.Uint16(datagram[5:7])
	return eventID, ticketCount, nil
}

// DecodeGetTickets parses a full GET_TICKETS datagram. The returned
// cookie aliases the datagram buffer; callers that keep it must copy.
func DecodeGetTickets(datagram []byte) (reservationID uint32, cookie []byte, err error) {
	if len(datagram) != GetTicketsLength || datagram[0] != MessageIDGetTickets {
		return 0, nil, ErrMalformed
	}
	reservationID = binary.BigEndian.Uint32(datagram[1:5])
	return reservationID, datagram[5:], nil
}

// EncodeEvents builds an EVENTS response for the given events. The
// caller is responsible for passing a prefix that fits MaxDatagram (the
// engine's ListEvents does the budgeting).
func EncodeEvents(events []*models.Event) []byte {
	size := 1
	for _, event := range events {
		size += EventEntrySize(event)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, MessageIDEvents)
	for _, event := range events {
		buf = binary.BigEndian.AppendUint32(buf, event.ID)
		buf = binary.BigEndian.AppendUint16(buf, event.Remaining)
		buf = append(buf, byte(len(event.Description)))
		buf = append(buf, event.Description...)
	}
	return buf
}

// EncodeReservation builds a RESERVATION response.
func EncodeReservation(reservation *models.Reservation) []byte {
	buf := make([]byte, 0, ReservationLength)
	buf = append(buf, MessageIDReservation)
	buf = binary.BigEndian.AppendUint32(buf, reservation.ID)
	buf = binary.BigEndian.AppendUint32(buf, reservation.EventID)
	buf = binary.BigEndian.AppendUint16(buf, reservation.TicketCount)
	buf = append(buf, reservation.Cookie...)
	buf = binary.BigEndian.AppendUint64(buf, reservation.ExpiresAt)
	return buf
}

// EncodeTickets builds a TICKETS response from the issued codes.
func EncodeTickets(reservationID uint32, codes []string) []byte {
	buf := make([]byte, 0, TicketsHeaderLength+len(codes)*utils.TicketCodeLength)
	buf = append(buf, MessageIDTickets)
	buf = binary.BigEndian.AppendUint32(buf, reservationID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(codes)))
	for _, code := range codes {
		buf = append(buf, code...)
	}
	return buf
}

// EncodeBadRequest builds a BAD_REQUEST response echoing the id field
// of the rejected request, byte-for-byte as it arrived.
func EncodeBadRequest(id uint32) []byte {
	buf := make([]byte, 0, BadRequestLength)
	buf = append(buf, MessageIDBadRequest)
	buf = binary.BigEndian.AppendUint32(buf, id)
	return buf
}

// EventEntry is one decoded entry of an EVENTS response.
type EventEntry struct {
	ID          uint32
	Remaining   uint16
	Description string
}

// DecodeEvents parses a full EVENTS response. Client-side half of
// EncodeEvents.
func DecodeEvents(datagram []byte) ([]EventEntry, error) {
	if len(datagram) < 1 || datagram[0] != MessageIDEvents {
		return nil, ErrMalformed
	}
	var entries []EventEntry
	rest := datagram[1:]
	for len(rest) > 0 {
		if len(rest) < eventEntryHeaderSize {
			return nil, ErrMalformed
		}
		descLen := int(rest[6])
		if len(rest) < eventEntryHeaderSize+descLen {
			return nil, ErrMalformed
		}
		entries = append(entries, EventEntry{
			ID:          binary.BigEndian.Uint32(rest[0:4]),
			Remaining:   binary.BigEndian.Uint16(rest[4:6]),
			Description: string(rest[eventEntryHeaderSize : eventEntryHeaderSize+descLen]),
		})
		rest = rest[eventEntryHeaderSize+descLen:]
	}
	return entries, nil
}

// DecodeReservation parses a full RESERVATION response.
func DecodeReservation(datagram []byte) (*models.Reservation, error) {
	if len(datagram) != ReservationLength || datagram[0] != MessageIDReservation {
		return nil, ErrMalformed
	}
	cookie := make([]byte, models.CookieLength)
	copy(cookie, datagram[11:11+models.CookieLength])
	return &models.Reservation{
		ID:          binary.BigEndian.Uint32(datagram[1:5]),
		EventID:     binary.BigEndian.Uint32(datagram[5:9]),
		TicketCount: binary.BigEndian.Uint16(datagram[9:11]),
		Cookie:      cookie,
		ExpiresAt:   binary.BigEndian.Uint64(datagram[11+models.CookieLength:]),
	}, nil
}

// DecodeTickets parses a full TICKETS response into its codes.
func DecodeTickets(datagram []byte) (reservationID uint32, codes []string, err error) {
	if len(datagram) < TicketsHeaderLength || datagram[0] != MessageIDTickets {
		return 0, nil, ErrMalformed
	}
	reservationID = binary.BigEndian.Uint32(datagram[1:5])
	count := int(binary.BigEndian.Uint16(datagram[5:7]))
	if len(datagram) != TicketsHeaderLength+count*utils.TicketCodeLength {
		return 0, nil, ErrMalformed
	}
	codes = make([]string, count)
	for i := range codes {
		start := TicketsHeaderLength + i*utils.TicketCodeLength
		codes[i] = string(datagram[start : start+utils.TicketCodeLength])
	}
	return reservationID, codes, nil
}

// DecodeBadRequest parses a BAD_REQUEST response, returning the echoed
// id.
func DecodeBadRequest(datagram []byte) (uint32, error) {
	if len(datagram) != BadRequestLength || datagram[0] != MessageIDBadRequest {
		return 0, ErrMalformed
	}
	return binary.BigEndian.Uint32(datagram[1:]), nil
}
