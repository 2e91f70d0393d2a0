package catalogue

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/puznanski/SIK-ticketserver/internal/models"
)

// Catalogue is the immutable ordered list of events loaded at startup.
// The list itself never changes after Load; only each event's Remaining
// counter moves as reservations are made and reclaimed.
type Catalogue struct {
	events []*models.Event
}

// New builds a catalogue from events in order, renumbering their ids by
// position.
func New(events []*models.Event) *Catalogue {
	for i, event := range events {
		event.ID = uint32(i)
	}
	return &Catalogue{events: events}
}

// Load reads the events file: pairs of lines, a description (1-255
// bytes) followed by the initial ticket count (decimal, 0-65535).
// Events are numbered from 0 in file order. A blank description line
// terminates parsing.
func Load(path string) (*Catalogue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer file.Close()

	var events []*models.Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		description := scanner.Text()
		if description == "" {
			break
		}
		if len(description) > 255 {
			return nil, fmt.Errorf("event %d: description is %d bytes, maximum is 255", len(events), len(description))
		}
		if !scanner.Scan() {
			return nil, fmt.Errorf("event %d: missing ticket count line", len(events))
		}
		count, err := strconv.ParseUint(scanner.Text(), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("event %d: ticket count %q: %w", len(events), scanner.Text(), err)
		}
		events = append(events, &models.Event{
			Description: description,
			Remaining:   uint16(count),
			Initial:     uint16(count),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	return New(events), nil
}

// Len returns the number of events in the catalogue.
func (c *Catalogue) Len() int {
	return len(c.events)
}

// Get looks an event up by id.
func (c *Catalogue) Get(id uint32) (*models.Event, error) {
	if id >= uint32(len(c.events)) {
		return nil, models.ErrUnknownEvent
	}
	return c.events[id], nil
}

// Events returns the full event list in catalogue order. Callers must
// not reorder or resize it.
func (c *Catalogue) Events() []*models.Event {
	return c.events
}
