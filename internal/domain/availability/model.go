package availability

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a derived, never-persisted bookable start time. Two slots are equal
// iff all fields match. The local fields describe the slot in the location's
// zone; Start is the resolved absolute instant.
type Slot struct {
	LocationID      uuid.UUID `json:"location_id"`
	Date            string    `json:"date"`       // YYYY-MM-DD, location-local
	StartTimeOfDay  string    `json:"start_time"` // HH:MM, location-local
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// End returns the half-open end instant of the slot.
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// BookingWindow is the availability core's view of a persisted booking: just
// enough to run overlap checks and to report a conflict.
type BookingWindow struct {
	ID              uuid.UUID `json:"id"`
	TherapistID     uuid.UUID `json:"therapist_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// End returns the half-open end instant of the booking.
func (b BookingWindow) End() time.Time {
	return b.Start.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps applies the half-open interval test: touching edges do not
// conflict.
func (b BookingWindow) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End())
}

// CheckResult reports an exact-instant availability decision.
type CheckResult struct {
	IsAvailable        bool           `json:"is_available"`
	ConflictingBooking *BookingWindow `json:"conflicting_booking,omitempty"`
}
