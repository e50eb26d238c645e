package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/internal/platform/cache"
	"github.com/carebook/carebook/internal/platform/db"
	"github.com/carebook/carebook/internal/platform/localtime"
)

type Service struct {
	hours     BusinessHourRepository
	overrides DateOverrideRepository
	slotCache *cache.Cache
}

func NewService(hours BusinessHourRepository, overrides DateOverrideRepository, slotCache *cache.Cache) *Service {
	return &Service{hours: hours, overrides: overrides, slotCache: slotCache}
}

// invalidateLocation drops every cached slot list for the location. Weekly
// intervals and overrides feed slot generation for arbitrary dates, so any
// schedule write clears the whole location.
func (s *Service) invalidateLocation(ctx context.Context, locationID uuid.UUID) {
	if !s.slotCache.Enabled() {
		return
	}
	tenant := db.TenantFromContext(ctx)
	s.slotCache.InvalidatePrefix(ctx, cache.LocationPrefix(tenant, locationID.String()))
}

// -- Business hours --

func (s *Service) AddBusinessHour(ctx context.Context, bh *BusinessHour) error {
	if bh.LocationID == uuid.Nil {
		return fmt.Errorf("location_id is required")
	}
	if bh.Weekday < 0 || bh.Weekday > 6 {
		return fmt.Errorf("weekday must be 0 (Sunday) through 6 (Saturday)")
	}
	if err := validateInterval(bh.StartTime, bh.EndTime); err != nil {
		return err
	}
	if bh.Active == nil {
		active := true
		bh.Active = &active
	}
	if *bh.Active {
		if err := s.checkHourOverlap(ctx, bh); err != nil {
			return err
		}
	}
	if err := s.hours.Create(ctx, bh); err != nil {
		return err
	}
	s.invalidateLocation(ctx, bh.LocationID)
	return nil
}

// DeactivateBusinessHour soft-disables an interval. The row is kept so the
// schedule's history survives and the interval can be re-enabled later.
func (s *Service) DeactivateBusinessHour(ctx context.Context, id uuid.UUID) (*BusinessHour, error) {
	return s.setHourActive(ctx, id, false)
}

func (s *Service) ActivateBusinessHour(ctx context.Context, id uuid.UUID) (*BusinessHour, error) {
	return s.setHourActive(ctx, id, true)
}

func (s *Service) setHourActive(ctx context.Context, id uuid.UUID, active bool) (*BusinessHour, error) {
	bh, err := s.hours.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		check := *bh
		check.Active = &active
		if err := s.checkHourOverlap(ctx, &check); err != nil {
			return nil, err
		}
	}
	bh.Active = &active
	if err := s.hours.Update(ctx, bh); err != nil {
		return nil, err
	}
	s.invalidateLocation(ctx, bh.LocationID)
	return bh, nil
}

func (s *Service) ListBusinessHours(ctx context.Context, locationID uuid.UUID) ([]*BusinessHour, error) {
	return s.hours.ListByLocation(ctx, locationID)
}

// checkHourOverlap rejects an active interval that overlaps another active
// interval on the same weekday. Inactive rows do not count.
func (s *Service) checkHourOverlap(ctx context.Context, bh *BusinessHour) error {
	existing, err := s.hours.ListActiveByWeekday(ctx, bh.LocationID, time.Weekday(bh.Weekday))
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == bh.ID {
			continue
		}
		if localtime.OverlapsTimeRange(bh.StartTime, bh.EndTime, other.StartTime, other.EndTime) {
			return fmt.Errorf("interval %s-%s overlaps existing interval %s-%s",
				bh.StartTime, bh.EndTime, other.StartTime, other.EndTime)
		}
	}
	return nil
}

// -- Date overrides --

func (s *Service) CreateOverride(ctx context.Context, o *DateOverride) error {
	if o.LocationID == uuid.Nil {
		return fmt.Errorf("location_id is required")
	}
	if _, _, _, err := localtime.ParseDate(o.StartDate); err != nil {
		return fmt.Errorf("invalid start_date: %s", o.StartDate)
	}
	if _, _, _, err := localtime.ParseDate(o.EndDate); err != nil {
		return fmt.Errorf("invalid end_date: %s", o.EndDate)
	}
	if o.EndDate < o.StartDate {
		return fmt.Errorf("end_date must not precede start_date")
	}
	if o.Closed && len(o.Slots) > 0 {
		return fmt.Errorf("a closed override cannot carry open slots")
	}
	for _, sl := range o.Slots {
		if err := validateInterval(sl.StartTime, sl.EndTime); err != nil {
			return err
		}
	}
	if o.Active == nil {
		active := true
		o.Active = &active
	}
	if err := s.overrides.Create(ctx, o); err != nil {
		return err
	}
	for _, sl := range o.Slots {
		sl.OverrideID = o.ID
		if sl.Active == nil {
			active := true
			sl.Active = &active
		}
		if err := s.overrides.AddSlot(ctx, sl); err != nil {
			return err
		}
	}
	s.invalidateLocation(ctx, o.LocationID)
	return nil
}

func (s *Service) GetOverride(ctx context.Context, id uuid.UUID) (*DateOverride, error) {
	return s.overrides.GetByID(ctx, id)
}

func (s *Service) ListOverrides(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*DateOverride, int, error) {
	return s.overrides.ListByLocation(ctx, locationID, limit, offset)
}

// DeactivateOverride soft-disables an override; generation falls back to the
// weekly schedule for the covered dates.
func (s *Service) DeactivateOverride(ctx context.Context, id uuid.UUID) (*DateOverride, error) {
	o, err := s.overrides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	active := false
	o.Active = &active
	if err := s.overrides.Update(ctx, o); err != nil {
		return nil, err
	}
	s.invalidateLocation(ctx, o.LocationID)
	return o, nil
}

func (s *Service) AddOverrideSlot(ctx context.Context, sl *OverrideSlot) error {
	if sl.OverrideID == uuid.Nil {
		return fmt.Errorf("override_id is required")
	}
	o, err := s.overrides.GetByID(ctx, sl.OverrideID)
	if err != nil {
		return fmt.Errorf("override %s not found", sl.OverrideID)
	}
	if o.Closed {
		return fmt.Errorf("cannot add slots to a closed override")
	}
	if err := validateInterval(sl.StartTime, sl.EndTime); err != nil {
		return err
	}
	if sl.Active == nil {
		active := true
		sl.Active = &active
	}
	if err := s.overrides.AddSlot(ctx, sl); err != nil {
		return err
	}
	s.invalidateLocation(ctx, o.LocationID)
	return nil
}

func (s *Service) DeactivateOverrideSlot(ctx context.Context, overrideID, slotID uuid.UUID) error {
	o, err := s.overrides.GetByID(ctx, overrideID)
	if err != nil {
		return err
	}
	slots, err := s.overrides.GetSlots(ctx, overrideID)
	if err != nil {
		return err
	}
	for _, sl := range slots {
		if sl.ID == slotID {
			active := false
			sl.Active = &active
			if err := s.overrides.UpdateSlot(ctx, sl); err != nil {
				return err
			}
			s.invalidateLocation(ctx, o.LocationID)
			return nil
		}
	}
	return fmt.Errorf("slot %s not found on override %s", slotID, overrideID)
}

func validateInterval(start, end string) error {
	startMin, err := localtime.MinutesOfDay(start)
	if err != nil {
		return fmt.Errorf("invalid start_time: %s", start)
	}
	endMin, err := localtime.MinutesOfDay(end)
	if err != nil {
		return fmt.Errorf("invalid end_time: %s", end)
	}
	if startMin >= endMin {
		return fmt.Errorf("start_time %s must precede end_time %s", start, end)
	}
	return nil
}
