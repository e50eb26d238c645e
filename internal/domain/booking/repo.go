package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/internal/domain/availability"
)

// SearchParams narrows a booking search. Zero values are ignored.
type SearchParams struct {
	TherapistID uuid.UUID
	LocationID  uuid.UUID
	Status      string
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	Update(ctx context.Context, b *Booking) error
	Search(ctx context.Context, params SearchParams) ([]*Booking, int, error)

	// FindActiveInRange feeds the availability checker: non-cancelled
	// bookings for the therapist starting in [from, to).
	FindActiveInRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]availability.BookingWindow, error)
}
