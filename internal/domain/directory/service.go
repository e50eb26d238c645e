package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebook/carebook/internal/platform/localtime"
)

const defaultSlotMinutes = 30

type Service struct {
	locations  LocationRepository
	therapists TherapistRepository
}

func NewService(loc LocationRepository, th TherapistRepository) *Service {
	return &Service{locations: loc, therapists: th}
}

// -- Location --

func (s *Service) CreateLocation(ctx context.Context, l *Location) error {
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if l.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := localtime.LoadZone(l.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %s", l.Timezone)
	}
	if l.DefaultSlotMinutes == 0 {
		l.DefaultSlotMinutes = defaultSlotMinutes
	}
	if l.DefaultSlotMinutes < 0 {
		return fmt.Errorf("default_slot_minutes must be positive")
	}
	if l.Active == nil {
		active := true
		l.Active = &active
	}
	return s.locations.Create(ctx, l)
}

func (s *Service) GetLocation(ctx context.Context, id uuid.UUID) (*Location, error) {
	return s.locations.GetByID(ctx, id)
}

func (s *Service) UpdateLocation(ctx context.Context, l *Location) error {
	if l.Timezone != "" {
		if _, err := localtime.LoadZone(l.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %s", l.Timezone)
		}
	}
	if l.DefaultSlotMinutes < 0 {
		return fmt.Errorf("default_slot_minutes must be positive")
	}
	return s.locations.Update(ctx, l)
}

func (s *Service) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	return s.locations.Delete(ctx, id)
}

func (s *Service) SearchLocations(ctx context.Context, params map[string]string, limit, offset int) ([]*Location, int, error) {
	return s.locations.Search(ctx, params, limit, offset)
}

// -- Therapist --

func (s *Service) CreateTherapist(ctx context.Context, th *Therapist) error {
	if th.Name == "" {
		return fmt.Errorf("name is required")
	}
	if th.Email == "" {
		return fmt.Errorf("email is required")
	}
	if th.LocationID != nil {
		if _, err := s.locations.GetByID(ctx, *th.LocationID); err != nil {
			return fmt.Errorf("location %s not found", th.LocationID)
		}
	}
	if th.Active == nil {
		active := true
		th.Active = &active
	}
	return s.therapists.Create(ctx, th)
}

func (s *Service) GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	return s.therapists.GetByID(ctx, id)
}

func (s *Service) UpdateTherapist(ctx context.Context, th *Therapist) error {
	if th.LocationID != nil {
		if _, err := s.locations.GetByID(ctx, *th.LocationID); err != nil {
			return fmt.Errorf("location %s not found", th.LocationID)
		}
	}
	return s.therapists.Update(ctx, th)
}

func (s *Service) DeleteTherapist(ctx context.Context, id uuid.UUID) error {
	return s.therapists.Delete(ctx, id)
}

func (s *Service) ListTherapistsByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*Therapist, int, error) {
	return s.therapists.ListByLocation(ctx, locationID, limit, offset)
}

func (s *Service) SearchTherapists(ctx context.Context, params map[string]string, limit, offset int) ([]*Therapist, int, error) {
	return s.therapists.Search(ctx, params, limit, offset)
}
