// internal/batch/splitter.go
package batch

import (
	"errors"
	"time"

	"github.com/glowdesk/campaigns-backend/internal/model"
)

// maxHorizonDays bounds the search for days with free quota. A list that does
// not fit inside a year of sending is a caller bug, not a schedule.
const maxHorizonDays = 365

var ErrNoCapacity = errors.New("contact list does not fit within the scheduling horizon")

// AvailableFunc reports how many contacts can still be reserved on a day.
// The splitter treats the answer as advisory; reservation at creation time is
// the actual enforcement point.
type AvailableFunc func(day time.Time) (int, error)

// Slot is one day-sized slice of the contact list. Date keeps the caller's
// chosen time-of-day, only the calendar day advances.
type Slot struct {
	Date     time.Time
	Contacts []model.Contact
}

// Split divides an ordered contact list into contiguous day batches, each
// consuming min(remaining quota for the day, perJobLimit, contacts left).
// Contact order is preserved within and across batches.
func Split(contacts []model.Contact, start time.Time, perJobLimit int, available AvailableFunc) ([]Slot, error) {
	var slots []Slot

	remaining := contacts
	day := start
	for offset := 0; len(remaining) > 0; offset++ {
		if offset >= maxHorizonDays {
			return nil, ErrNoCapacity
		}

		free, err := available(day)
		if err != nil {
			return nil, err
		}

		size := free
		if size > perJobLimit {
			size = perJobLimit
		}
		if size > len(remaining) {
			size = len(remaining)
		}
		if size > 0 {
			slots = append(slots, Slot{Date: day, Contacts: remaining[:size]})
			remaining = remaining[size:]
		}

		day = day.AddDate(0, 0, 1)
	}

	return slots, nil
}
