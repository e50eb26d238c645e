package directory

import (
	"context"

	"github.com/google/uuid"
)

type LocationRepository interface {
	Create(ctx context.Context, l *Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
	Update(ctx context.Context, l *Location) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Location, int, error)
}

type TherapistRepository interface {
	Create(ctx context.Context, th *Therapist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Therapist, error)
	Update(ctx context.Context, th *Therapist) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*Therapist, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Therapist, int, error)
}
