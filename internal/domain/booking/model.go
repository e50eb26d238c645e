package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Booking status lifecycle: pending and confirmed are active and hold the
// slot; cancelled frees it; completed keeps it but is terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

type Booking struct {
	ID              uuid.UUID `db:"id" json:"id"`
	TherapistID     uuid.UUID `db:"therapist_id" json:"therapist_id"`
	LocationID      uuid.UUID `db:"location_id" json:"location_id"`
	PatientName     string    `db:"patient_name" json:"patient_name"`
	PatientEmail    string    `db:"patient_email" json:"patient_email"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Status          string    `db:"status" json:"status"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func (b *Booking) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Active reports whether the booking still holds its slot.
func (b *Booking) Active() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Terminal reports whether the booking can no longer change state.
func (b *Booking) Terminal() bool {
	return b.Status == StatusCancelled || b.Status == StatusCompleted
}

// ConflictError reports that a slot is already held. When the storage
// uniqueness constraint fired, ConflictingBookingID names the holder if it
// could be resolved.
type ConflictError struct {
	TherapistID          uuid.UUID
	StartTime            time.Time
	ConflictingBookingID uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.ConflictingBookingID != uuid.Nil {
		return fmt.Sprintf("slot %s for therapist %s is held by booking %s",
			e.StartTime.Format(time.RFC3339), e.TherapistID, e.ConflictingBookingID)
	}
	return fmt.Sprintf("slot %s for therapist %s is already booked",
		e.StartTime.Format(time.RFC3339), e.TherapistID)
}
