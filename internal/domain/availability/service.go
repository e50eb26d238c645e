package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/internal/domain/directory"
	"github.com/carebook/carebook/internal/domain/schedule"
	"github.com/carebook/carebook/internal/platform/cache"
	"github.com/carebook/carebook/internal/platform/db"
	"github.com/carebook/carebook/internal/platform/localtime"
	"github.com/carebook/carebook/internal/platform/metrics"
)

// Collaborator interfaces. The pg repositories of the directory, schedule
// and booking packages satisfy these directly.

type LocationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*directory.Location, error)
}

type TherapistStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*directory.Therapist, error)
}

type HourStore interface {
	ListActiveByWeekday(ctx context.Context, locationID uuid.UUID, weekday time.Weekday) ([]*schedule.BusinessHour, error)
}

type OverrideStore interface {
	ListActiveForDate(ctx context.Context, locationID uuid.UUID, date string) ([]*schedule.DateOverride, error)
}

type BookingStore interface {
	// FindActiveInRange returns non-cancelled bookings for the therapist
	// whose start instant falls in [from, to).
	FindActiveInRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]BookingWindow, error)
}

// Service computes bookable slots and validates requested instants. Reads
// tolerate staleness; the booking guard re-checks at write time.
type Service struct {
	locations  LocationStore
	therapists TherapistStore
	hours      HourStore
	overrides  OverrideStore
	bookings   BookingStore
	slotCache  *cache.Cache
}

func NewService(loc LocationStore, th TherapistStore, hours HourStore, ov OverrideStore, bk BookingStore, slotCache *cache.Cache) *Service {
	return &Service{
		locations:  loc,
		therapists: th,
		hours:      hours,
		overrides:  ov,
		bookings:   bk,
		slotCache:  slotCache,
	}
}

type timeRange struct {
	start string
	end   string
}

// GenerateSlots produces the ordered bookable start times for a calendar
// date at a location. The date is interpreted in the location's zone. A zero
// durationMinutes falls back to the location default; a zero therapistID
// skips booking exclusion. Past dates still generate.
func (s *Service) GenerateSlots(ctx context.Context, locationID uuid.UUID, date string, therapistID uuid.UUID, durationMinutes int) ([]Slot, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", locationID, ErrNotFound)
	}
	if therapistID != uuid.Nil {
		if _, err := s.therapists.GetByID(ctx, therapistID); err != nil {
			return nil, fmt.Errorf("therapist %s: %w", therapistID, ErrNotFound)
		}
	}
	if durationMinutes == 0 {
		durationMinutes = loc.DefaultSlotMinutes
	}
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	key := cache.SlotKey(db.TenantFromContext(ctx), locationID.String(), date, therapistID.String(), durationMinutes)
	if s.slotCache.Enabled() {
		if raw, ok := s.slotCache.Get(ctx, key); ok {
			var cached []Slot
			if err := json.Unmarshal(raw, &cached); err == nil {
				metrics.IncSlotsGenerated("hit")
				return cached, nil
			}
		}
	}

	slots, err := s.generate(ctx, loc, date, therapistID, durationMinutes, uuid.Nil)
	if err != nil {
		return nil, err
	}

	if s.slotCache.Enabled() {
		if raw, err := json.Marshal(slots); err == nil {
			s.slotCache.Set(ctx, key, raw)
		}
		metrics.IncSlotsGenerated("miss")
	} else {
		metrics.IncSlotsGenerated("off")
	}
	return slots, nil
}

// CheckAvailability reports whether the exact instant is a bookable slot
// start for the therapist, re-verifying directly against stored bookings.
func (s *Service) CheckAvailability(ctx context.Context, therapistID uuid.UUID, start time.Time, durationMinutes int) (*CheckResult, error) {
	return s.CheckAvailabilityExcluding(ctx, therapistID, start, durationMinutes, uuid.Nil)
}

// CheckAvailabilityExcluding is CheckAvailability with one booking ignored.
// The booking guard passes the record being rescheduled so a no-op move to
// the same slot does not conflict with itself.
func (s *Service) CheckAvailabilityExcluding(ctx context.Context, therapistID uuid.UUID, start time.Time, durationMinutes int, excludeBookingID uuid.UUID) (*CheckResult, error) {
	th, err := s.therapists.GetByID(ctx, therapistID)
	if err != nil {
		return nil, fmt.Errorf("therapist %s: %w", therapistID, ErrNotFound)
	}
	if th.LocationID == nil {
		return nil, fmt.Errorf("therapist %s has no location: %w", therapistID, ErrNotFound)
	}
	loc, err := s.locations.GetByID(ctx, *th.LocationID)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", th.LocationID, ErrNotFound)
	}
	if durationMinutes == 0 {
		durationMinutes = loc.DefaultSlotMinutes
	}
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	zone, err := localtime.LoadZone(loc.Timezone)
	if err != nil {
		return nil, err
	}

	date := localtime.LocalDateKey(start, zone)
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	// Direct overlap re-check against the store. The generator below also
	// excludes booked slots, but the grid read can be stale; this query is
	// the fast-path arbiter before the storage constraint has the final say.
	if bw, err := s.findConflict(ctx, therapistID, start, end, excludeBookingID); err != nil {
		return nil, err
	} else if bw != nil {
		metrics.IncAvailabilityCheck("conflict")
		return &CheckResult{IsAvailable: false, ConflictingBooking: bw}, nil
	}

	// The requested instant must land on the slot grid for its local date.
	slots, err := s.generate(ctx, loc, date, therapistID, durationMinutes, excludeBookingID)
	if err != nil {
		return nil, err
	}
	for _, sl := range slots {
		if sl.Start.Equal(start) {
			metrics.IncAvailabilityCheck("available")
			return &CheckResult{IsAvailable: true}, nil
		}
	}
	metrics.IncAvailabilityCheck("off_grid")
	return &CheckResult{IsAvailable: false}, nil
}

// HasAvailability reports whether the therapist has at least one open slot on
// the date, stopping at the first surviving candidate.
func (s *Service) HasAvailability(ctx context.Context, therapistID uuid.UUID, locationID uuid.UUID, date string) (bool, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return false, fmt.Errorf("location %s: %w", locationID, ErrNotFound)
	}
	if _, err := s.therapists.GetByID(ctx, therapistID); err != nil {
		return false, fmt.Errorf("therapist %s: %w", therapistID, ErrNotFound)
	}
	durationMinutes := loc.DefaultSlotMinutes
	if durationMinutes <= 0 {
		return false, ErrInvalidDuration
	}
	zone, err := localtime.LoadZone(loc.Timezone)
	if err != nil {
		return false, err
	}
	intervals, err := s.effectiveIntervals(ctx, loc.ID, date, zone)
	if err != nil {
		return false, err
	}
	if len(intervals) == 0 {
		return false, nil
	}
	booked, err := s.bookingsForDate(ctx, therapistID, date, zone)
	if err != nil {
		return false, err
	}
	dur := time.Duration(durationMinutes) * time.Minute
	for _, iv := range intervals {
		candidates, err := stepInterval(date, iv, durationMinutes, zone)
		if err != nil {
			return false, err
		}
		for _, c := range candidates {
			if !overlapsAny(booked, c, c.Add(dur), uuid.Nil) {
				return true, nil
			}
		}
	}
	return false, nil
}

// InvalidateDay drops every cached slot list for the location on the
// instant's local date. Called by booking and schedule mutations.
func (s *Service) InvalidateDay(ctx context.Context, locationID uuid.UUID, at time.Time) {
	if !s.slotCache.Enabled() {
		return
	}
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return
	}
	zone, err := localtime.LoadZone(loc.Timezone)
	if err != nil {
		return
	}
	date := localtime.LocalDateKey(at, zone)
	s.slotCache.InvalidatePrefix(ctx, cache.SlotPrefix(db.TenantFromContext(ctx), locationID.String(), date))
}

// generate is the uncached slot pipeline: effective intervals, stepping,
// instant resolution, booking exclusion, ascending sort.
func (s *Service) generate(ctx context.Context, loc *directory.Location, date string, therapistID uuid.UUID, durationMinutes int, excludeBookingID uuid.UUID) ([]Slot, error) {
	zone, err := localtime.LoadZone(loc.Timezone)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := localtime.ParseDate(date); err != nil {
		return nil, err
	}

	intervals, err := s.effectiveIntervals(ctx, loc.ID, date, zone)
	if err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		return []Slot{}, nil
	}

	var booked []BookingWindow
	if therapistID != uuid.Nil {
		booked, err = s.bookingsForDate(ctx, therapistID, date, zone)
		if err != nil {
			return nil, err
		}
	}

	dur := time.Duration(durationMinutes) * time.Minute
	slots := []Slot{}
	for _, iv := range intervals {
		candidates, err := stepInterval(date, iv, durationMinutes, zone)
		if err != nil {
			return nil, err
		}
		for _, start := range candidates {
			if overlapsAny(booked, start, start.Add(dur), excludeBookingID) {
				continue
			}
			slots = append(slots, Slot{
				LocationID:      loc.ID,
				Date:            date,
				StartTimeOfDay:  localtime.LocalTimeKey(start, zone),
				Start:           start,
				DurationMinutes: durationMinutes,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, nil
}

// effectiveIntervals resolves the open wall-clock ranges in force for a
// date. Override precedence is fail-closed: any covering closed override
// empties the day; otherwise the tightest (then newest) open override
// replaces the weekly hours.
func (s *Service) effectiveIntervals(ctx context.Context, locationID uuid.UUID, date string, zone *time.Location) ([]timeRange, error) {
	overrides, err := s.overrides.ListActiveForDate(ctx, locationID, date)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		for _, o := range overrides {
			if o.Closed {
				return nil, nil
			}
		}
		best := overrides[0]
		for _, o := range overrides[1:] {
			if o.SpanDays() < best.SpanDays() ||
				(o.SpanDays() == best.SpanDays() && o.CreatedAt.After(best.CreatedAt)) {
				best = o
			}
		}
		var intervals []timeRange
		for _, sl := range best.Slots {
			if sl.Active != nil && !*sl.Active {
				continue
			}
			intervals = append(intervals, timeRange{start: sl.StartTime, end: sl.EndTime})
		}
		return intervals, nil
	}

	weekday, err := weekdayOf(date, zone)
	if err != nil {
		return nil, err
	}
	hours, err := s.hours.ListActiveByWeekday(ctx, locationID, weekday)
	if err != nil {
		return nil, err
	}
	var intervals []timeRange
	for _, bh := range hours {
		intervals = append(intervals, timeRange{start: bh.StartTime, end: bh.EndTime})
	}
	return intervals, nil
}

// bookingsForDate fetches non-cancelled bookings that could overlap any slot
// on the local date. The window is padded by a day on each side so bookings
// straddling local midnight are not missed.
func (s *Service) bookingsForDate(ctx context.Context, therapistID uuid.UUID, date string, zone *time.Location) ([]BookingWindow, error) {
	dayStart, err := localtime.Combine(date, "00:00", zone)
	if err != nil {
		return nil, err
	}
	from := dayStart.Add(-24 * time.Hour)
	to := dayStart.Add(48 * time.Hour)
	return s.bookings.FindActiveInRange(ctx, therapistID, from, to)
}

func (s *Service) findConflict(ctx context.Context, therapistID uuid.UUID, start, end time.Time, excludeBookingID uuid.UUID) (*BookingWindow, error) {
	window, err := s.bookings.FindActiveInRange(ctx, therapistID, start.Add(-24*time.Hour), end.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	var conflict *BookingWindow
	for i := range window {
		bw := window[i]
		if bw.ID == excludeBookingID {
			continue
		}
		if bw.Overlaps(start, end) {
			if conflict == nil || bw.Start.Before(conflict.Start) {
				conflict = &bw
			}
		}
	}
	return conflict, nil
}

// stepInterval lays fixed-duration candidates across one wall-clock
// interval, discarding a partial trailing slot, and resolves each start to
// an absolute instant for the date.
func stepInterval(date string, iv timeRange, durationMinutes int, zone *time.Location) ([]time.Time, error) {
	startMin, err := localtime.MinutesOfDay(iv.start)
	if err != nil {
		return nil, err
	}
	endMin, err := localtime.MinutesOfDay(iv.end)
	if err != nil {
		return nil, err
	}
	var starts []time.Time
	for t := startMin; t+durationMinutes <= endMin; t += durationMinutes {
		tod := fmt.Sprintf("%02d:%02d", t/60, t%60)
		instant, err := localtime.Combine(date, tod, zone)
		if err != nil {
			return nil, err
		}
		// A wall-clock time inside a spring-forward gap resolves to a
		// different local time; the slot does not exist on that date.
		if localtime.LocalTimeKey(instant, zone) != tod {
			continue
		}
		starts = append(starts, instant)
	}
	return starts, nil
}

func overlapsAny(booked []BookingWindow, start, end time.Time, excludeBookingID uuid.UUID) bool {
	for _, bw := range booked {
		if bw.ID == excludeBookingID {
			continue
		}
		if bw.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func weekdayOf(date string, zone *time.Location) (time.Weekday, error) {
	year, month, day, err := localtime.ParseDate(date)
	if err != nil {
		return 0, err
	}
	// Noon keeps the date stable across zones that skip midnight on DST
	// transition days.
	noon := time.Date(year, month, day, 12, 0, 0, 0, zone)
	return localtime.DayOfWeek(noon, zone), nil
}
