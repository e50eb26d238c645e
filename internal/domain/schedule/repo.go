package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BusinessHourRepository interface {
	Create(ctx context.Context, bh *BusinessHour) error
	GetByID(ctx context.Context, id uuid.UUID) (*BusinessHour, error)
	Update(ctx context.Context, bh *BusinessHour) error
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]*BusinessHour, error)
	ListActiveByWeekday(ctx context.Context, locationID uuid.UUID, weekday time.Weekday) ([]*BusinessHour, error)
}

type DateOverrideRepository interface {
	Create(ctx context.Context, o *DateOverride) error
	GetByID(ctx context.Context, id uuid.UUID) (*DateOverride, error)
	Update(ctx context.Context, o *DateOverride) error
	ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*DateOverride, int, error)
	// ListActiveForDate returns active overrides whose range covers the
	// given local date, with their slots loaded.
	ListActiveForDate(ctx context.Context, locationID uuid.UUID, date string) ([]*DateOverride, error)
	AddSlot(ctx context.Context, sl *OverrideSlot) error
	UpdateSlot(ctx context.Context, sl *OverrideSlot) error
	GetSlots(ctx context.Context, overrideID uuid.UUID) ([]*OverrideSlot, error)
}
