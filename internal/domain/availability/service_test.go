package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/internal/domain/directory"
	"github.com/carebook/carebook/internal/domain/schedule"
)

// -- Mock stores --

type mockLocations struct {
	items map[uuid.UUID]*directory.Location
}

func (m *mockLocations) GetByID(_ context.Context, id uuid.UUID) (*directory.Location, error) {
	if l, ok := m.items[id]; ok {
		return l, nil
	}
	return nil, errors.New("no rows")
}

type mockTherapists struct {
	items map[uuid.UUID]*directory.Therapist
}

func (m *mockTherapists) GetByID(_ context.Context, id uuid.UUID) (*directory.Therapist, error) {
	if t, ok := m.items[id]; ok {
		return t, nil
	}
	return nil, errors.New("no rows")
}

type mockHours struct {
	items []*schedule.BusinessHour
}

func (m *mockHours) ListActiveByWeekday(_ context.Context, locationID uuid.UUID, weekday time.Weekday) ([]*schedule.BusinessHour, error) {
	var out []*schedule.BusinessHour
	for _, bh := range m.items {
		if bh.LocationID != locationID || time.Weekday(bh.Weekday) != weekday {
			continue
		}
		if bh.Active != nil && !*bh.Active {
			continue
		}
		out = append(out, bh)
	}
	return out, nil
}

type mockOverrides struct {
	items []*schedule.DateOverride
}

func (m *mockOverrides) ListActiveForDate(_ context.Context, locationID uuid.UUID, date string) ([]*schedule.DateOverride, error) {
	var out []*schedule.DateOverride
	for _, o := range m.items {
		if o.LocationID != locationID || !o.Covers(date) {
			continue
		}
		if o.Active != nil && !*o.Active {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type mockBookings struct {
	items []BookingWindow
}

func (m *mockBookings) FindActiveInRange(_ context.Context, therapistID uuid.UUID, from, to time.Time) ([]BookingWindow, error) {
	var out []BookingWindow
	for _, bw := range m.items {
		if bw.TherapistID != therapistID {
			continue
		}
		if bw.Start.Before(from) || !bw.Start.Before(to) {
			continue
		}
		out = append(out, bw)
	}
	return out, nil
}

// -- Fixture --

type fixture struct {
	svc         *Service
	locationID  uuid.UUID
	therapistID uuid.UUID
	hours       *mockHours
	overrides   *mockOverrides
	bookings    *mockBookings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	active := true
	locationID := uuid.New()
	therapistID := uuid.New()

	locations := &mockLocations{items: map[uuid.UUID]*directory.Location{
		locationID: {
			ID:                 locationID,
			Name:               "Westside Clinic",
			Timezone:           "America/Los_Angeles",
			DefaultSlotMinutes: 30,
			Active:             &active,
		},
	}}
	therapists := &mockTherapists{items: map[uuid.UUID]*directory.Therapist{
		therapistID: {
			ID:         therapistID,
			Name:       "Dana Reyes",
			Email:      "dana@example.com",
			LocationID: &locationID,
			Active:     &active,
		},
	}}
	hours := &mockHours{}
	overrides := &mockOverrides{}
	bookings := &mockBookings{}

	return &fixture{
		svc:         NewService(locations, therapists, hours, overrides, bookings, nil),
		locationID:  locationID,
		therapistID: therapistID,
		hours:       hours,
		overrides:   overrides,
		bookings:    bookings,
	}
}

func (f *fixture) addHours(weekday time.Weekday, start, end string) {
	active := true
	f.hours.items = append(f.hours.items, &schedule.BusinessHour{
		ID:         uuid.New(),
		LocationID: f.locationID,
		Weekday:    int(weekday),
		StartTime:  start,
		EndTime:    end,
		Active:     &active,
	})
}

func (f *fixture) addBooking(start time.Time, durationMinutes int) uuid.UUID {
	id := uuid.New()
	f.bookings.items = append(f.bookings.items, BookingWindow{
		ID:              id,
		TherapistID:     f.therapistID,
		Start:           start,
		DurationMinutes: durationMinutes,
	})
	return id
}

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	zone, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load zone %s: %v", name, err)
	}
	return zone
}

// -- GenerateSlots --

func TestGenerateSlots_MorningGrid(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")

	// 2025-06-02 is a Monday.
	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}
	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	for i, w := range want {
		if slots[i].StartTimeOfDay != w {
			t.Errorf("slot %d: expected %s, got %s", i, w, slots[i].StartTimeOfDay)
		}
	}
	// A slot starting at closing time would run past the interval.
	last := slots[len(slots)-1]
	if last.StartTimeOfDay == "12:00" {
		t.Error("slot at closing time should not exist")
	}

	la := mustZone(t, "America/Los_Angeles")
	first, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 09:00", la)
	if !slots[0].Start.Equal(first) {
		t.Errorf("expected first slot at %v, got %v", first, slots[0].Start)
	}
}

func TestGenerateSlots_ConsecutiveSlotsTouch(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i-1].End().Equal(slots[i].Start) {
			t.Errorf("slot %d end %v != slot %d start %v", i-1, slots[i-1].End(), i, slots[i].Start)
		}
	}
}

func TestGenerateSlots_PartialTrailingSlotDiscarded(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "10:45")

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10:30 would end at 11:00, past 10:45.
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if slots[2].StartTimeOfDay != "10:00" {
		t.Errorf("expected last slot at 10:00, got %s", slots[2].StartTimeOfDay)
	}
}

func TestGenerateSlots_NoHoursForWeekday(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")

	// 2025-06-03 is a Tuesday.
	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-03", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestGenerateSlots_BookingExcludesOnlyOverlappingSlots(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	la := mustZone(t, "America/Los_Angeles")
	booked, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 10:00", la)
	f.addBooking(booked, 30)

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", f.therapistID, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
	for _, sl := range slots {
		if sl.StartTimeOfDay == "10:00" {
			t.Error("booked 10:00 slot should be excluded")
		}
	}
	// The booking ends exactly when the 10:30 slot starts.
	found := false
	for _, sl := range slots {
		if sl.StartTimeOfDay == "10:30" {
			found = true
		}
	}
	if !found {
		t.Error("10:30 slot touching the booking's end should remain")
	}
}

func TestGenerateSlots_LongBookingShadowsMultipleSlots(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	la := mustZone(t, "America/Los_Angeles")
	booked, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 09:45", la)
	f.addBooking(booked, 60)

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", f.therapistID, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 09:30, 10:00 and 10:30 all overlap [09:45, 10:45).
	gone := map[string]bool{"09:30": true, "10:00": true, "10:30": true}
	for _, sl := range slots {
		if gone[sl.StartTimeOfDay] {
			t.Errorf("slot %s overlaps booking and should be excluded", sl.StartTimeOfDay)
		}
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
}

func TestGenerateSlots_NoTherapistFilterIgnoresBookings(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	la := mustZone(t, "America/Los_Angeles")
	booked, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 10:00", la)
	f.addBooking(booked, 30)

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("expected full grid of 6 slots, got %d", len(slots))
	}
}

func TestGenerateSlots_ClosedOverrideEmptiesDay(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	active := true
	reason := "public holiday"
	f.overrides.items = append(f.overrides.items, &schedule.DateOverride{
		ID:         uuid.New(),
		LocationID: f.locationID,
		StartDate:  "2025-06-02",
		EndDate:    "2025-06-02",
		Closed:     true,
		Reason:     &reason,
		Active:     &active,
	})

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on closed day, got %d", len(slots))
	}
}

func TestGenerateSlots_OpenOverrideReplacesWeeklyHours(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	active := true
	f.overrides.items = append(f.overrides.items, &schedule.DateOverride{
		ID:         uuid.New(),
		LocationID: f.locationID,
		StartDate:  "2025-06-02",
		EndDate:    "2025-06-02",
		Closed:     false,
		Active:     &active,
		Slots: []*schedule.OverrideSlot{
			{StartTime: "13:00", EndTime: "14:00", Active: &active},
		},
	})

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 override slots, got %d", len(slots))
	}
	if slots[0].StartTimeOfDay != "13:00" || slots[1].StartTimeOfDay != "13:30" {
		t.Errorf("expected 13:00 and 13:30, got %s and %s", slots[0].StartTimeOfDay, slots[1].StartTimeOfDay)
	}
}

func TestGenerateSlots_ClosedOverrideWinsOverOpen(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	active := true
	f.overrides.items = append(f.overrides.items,
		&schedule.DateOverride{
			ID: uuid.New(), LocationID: f.locationID,
			StartDate: "2025-06-01", EndDate: "2025-06-07",
			Closed: false, Active: &active,
			Slots: []*schedule.OverrideSlot{{StartTime: "08:00", EndTime: "12:00", Active: &active}},
		},
		&schedule.DateOverride{
			ID: uuid.New(), LocationID: f.locationID,
			StartDate: "2025-06-02", EndDate: "2025-06-02",
			Closed: true, Active: &active,
		},
	)

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("closed override should win, got %d slots", len(slots))
	}
}

func TestGenerateSlots_TightestOpenOverrideWins(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	active := true
	f.overrides.items = append(f.overrides.items,
		&schedule.DateOverride{
			ID: uuid.New(), LocationID: f.locationID,
			StartDate: "2025-06-01", EndDate: "2025-06-07",
			Closed: false, Active: &active,
			CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			Slots:     []*schedule.OverrideSlot{{StartTime: "08:00", EndTime: "18:00", Active: &active}},
		},
		&schedule.DateOverride{
			ID: uuid.New(), LocationID: f.locationID,
			StartDate: "2025-06-02", EndDate: "2025-06-02",
			Closed: false, Active: &active,
			CreatedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Slots:     []*schedule.OverrideSlot{{StartTime: "15:00", EndTime: "16:00", Active: &active}},
		},
	)

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 || slots[0].StartTimeOfDay != "15:00" {
		t.Fatalf("single-day override should win over week-long one, got %+v", slots)
	}
}

func TestGenerateSlots_DSTOffsetsDiffer(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Sunday, "09:00", "12:00")

	// 2025-03-02 is standard time (UTC-8); 2025-03-09 is the spring-forward
	// Sunday and ends up in daylight time (UTC-7) by 09:00 local.
	before, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-03-02", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-03-09", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(before) != 6 || len(after) != 6 {
		t.Fatalf("expected 6 slots on both Sundays, got %d and %d", len(before), len(after))
	}
	if before[0].StartTimeOfDay != "09:00" || after[0].StartTimeOfDay != "09:00" {
		t.Error("local wall-clock boundary should be preserved across the DST change")
	}
	if before[0].Start.UTC().Hour() != 17 {
		t.Errorf("standard-time 09:00 should be 17:00 UTC, got %d", before[0].Start.UTC().Hour())
	}
	if after[0].Start.UTC().Hour() != 16 {
		t.Errorf("daylight-time 09:00 should be 16:00 UTC, got %d", after[0].Start.UTC().Hour())
	}
}

func TestGenerateSlots_SpringForwardGapSkipped(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Sunday, "01:00", "04:00")

	// On 2025-03-09 the clock jumps from 02:00 to 03:00 in Los Angeles.
	// 02:00 and 02:30 never occur and must not collapse onto other slots.
	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-03-09", uuid.Nil, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"01:00", "01:30", "03:00", "03:30"}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %+v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if slots[i].StartTimeOfDay != w {
			t.Errorf("slot %d: expected %s, got %s", i, w, slots[i].StartTimeOfDay)
		}
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start.Before(slots[i-1].End()) {
			t.Errorf("slot %d [%v) overlaps slot %d [%v)", i-1, slots[i-1].Start, i, slots[i].Start)
		}
	}
}

func TestGenerateSlots_DefaultDurationFromLocation(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "10:00")

	slots, err := f.svc.GenerateSlots(context.Background(), f.locationID, "2025-06-02", uuid.Nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 || slots[0].DurationMinutes != 30 {
		t.Fatalf("expected 2 default-duration slots, got %+v", slots)
	}
}

func TestGenerateSlots_Errors(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	ctx := context.Background()

	if _, err := f.svc.GenerateSlots(ctx, uuid.New(), "2025-06-02", uuid.Nil, 30); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown location: expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.GenerateSlots(ctx, f.locationID, "2025-06-02", uuid.New(), 30); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown therapist: expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.GenerateSlots(ctx, f.locationID, "2025-06-02", uuid.Nil, -15); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("negative duration: expected ErrInvalidDuration, got %v", err)
	}
	if _, err := f.svc.GenerateSlots(ctx, f.locationID, "not-a-date", uuid.Nil, 30); err == nil {
		t.Error("malformed date should fail")
	}
}

// -- CheckAvailability --

func TestCheckAvailability_OnGridSlot(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	la := mustZone(t, "America/Los_Angeles")
	start, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 09:30", la)

	res, err := f.svc.CheckAvailability(context.Background(), f.therapistID, start, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsAvailable {
		t.Error("expected 09:30 to be available")
	}
	if res.ConflictingBooking != nil {
		t.Errorf("expected no conflict, got %+v", res.ConflictingBooking)
	}
}

func TestCheckAvailability_OffGridInstant(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	la := mustZone(t, "America/Los_Angeles")
	start, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 09:15", la)

	res, err := f.svc.CheckAvailability(context.Background(), f.therapistID, start, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsAvailable {
		t.Error("09:15 is off the 30-minute grid and should not be available")
	}
	if res.ConflictingBooking != nil {
		t.Errorf("off-grid is not a conflict, got %+v", res.ConflictingBooking)
	}
}

func TestCheckAvailability_BookingConflict(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	la := mustZone(t, "America/Los_Angeles")
	booked, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 10:00", la)
	bookedID := f.addBooking(booked, 30)

	res, err := f.svc.CheckAvailability(context.Background(), f.therapistID, booked, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsAvailable {
		t.Error("booked slot should not be available")
	}
	if res.ConflictingBooking == nil || res.ConflictingBooking.ID != bookedID {
		t.Errorf("expected conflict with %s, got %+v", bookedID, res.ConflictingBooking)
	}
}

func TestCheckAvailabilityExcluding_OwnBookingIsNotAConflict(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "12:00")
	la := mustZone(t, "America/Los_Angeles")
	booked, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 10:00", la)
	bookedID := f.addBooking(booked, 30)

	res, err := f.svc.CheckAvailabilityExcluding(context.Background(), f.therapistID, booked, 30, bookedID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsAvailable {
		t.Error("a booking rescheduled onto its own slot should be available")
	}
}

func TestCheckAvailability_TherapistWithoutLocation(t *testing.T) {
	f := newFixture(t)
	lonerID := uuid.New()
	f.svc.therapists.(*mockTherapists).items[lonerID] = &directory.Therapist{
		ID: lonerID, Name: "No Home", Email: "nohome@example.com",
	}
	res, err := f.svc.CheckAvailability(context.Background(), lonerID, time.Now(), 30)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v (%+v)", err, res)
	}
}

// -- HasAvailability --

func TestHasAvailability(t *testing.T) {
	f := newFixture(t)
	f.addHours(time.Monday, "09:00", "10:00")
	la := mustZone(t, "America/Los_Angeles")
	ctx := context.Background()

	open, err := f.svc.HasAvailability(ctx, f.therapistID, f.locationID, "2025-06-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !open {
		t.Error("expected availability before any bookings")
	}

	for _, tod := range []string{"09:00", "09:30"} {
		start, _ := time.ParseInLocation("2006-01-02 15:04", "2025-06-02 "+tod, la)
		f.addBooking(start, 30)
	}
	open, err = f.svc.HasAvailability(ctx, f.therapistID, f.locationID, "2025-06-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open {
		t.Error("expected no availability once every slot is booked")
	}

	open, err = f.svc.HasAvailability(ctx, f.therapistID, f.locationID, "2025-06-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open {
		t.Error("expected no availability on a day without hours")
	}
}
