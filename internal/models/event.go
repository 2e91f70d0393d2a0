package models

// Event is one bookable entry of the catalogue. The id is the event's
// position in the events file, so the catalogue never stores it twice;
// it is kept on the struct because the EVENTS response carries it.
type Event struct {
	ID          uint32
	Description string
	Remaining   uint16
	Initial     uint16
}
