package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockHourRepo struct {
	hours map[uuid.UUID]*BusinessHour
}

func newMockHourRepo() *mockHourRepo {
	return &mockHourRepo{hours: make(map[uuid.UUID]*BusinessHour)}
}

func (m *mockHourRepo) Create(_ context.Context, bh *BusinessHour) error {
	bh.ID = uuid.New()
	bh.CreatedAt = time.Now()
	bh.UpdatedAt = time.Now()
	m.hours[bh.ID] = bh
	return nil
}

func (m *mockHourRepo) GetByID(_ context.Context, id uuid.UUID) (*BusinessHour, error) {
	bh, ok := m.hours[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return bh, nil
}

func (m *mockHourRepo) Update(_ context.Context, bh *BusinessHour) error {
	m.hours[bh.ID] = bh
	return nil
}

func (m *mockHourRepo) ListByLocation(_ context.Context, locationID uuid.UUID) ([]*BusinessHour, error) {
	var result []*BusinessHour
	for _, bh := range m.hours {
		if bh.LocationID == locationID {
			result = append(result, bh)
		}
	}
	return result, nil
}

func (m *mockHourRepo) ListActiveByWeekday(_ context.Context, locationID uuid.UUID, weekday time.Weekday) ([]*BusinessHour, error) {
	var result []*BusinessHour
	for _, bh := range m.hours {
		if bh.LocationID == locationID && bh.Weekday == int(weekday) && bh.Active != nil && *bh.Active {
			result = append(result, bh)
		}
	}
	return result, nil
}

type mockOverrideRepo struct {
	overrides map[uuid.UUID]*DateOverride
	slots     map[uuid.UUID]*OverrideSlot
}

func newMockOverrideRepo() *mockOverrideRepo {
	return &mockOverrideRepo{
		overrides: make(map[uuid.UUID]*DateOverride),
		slots:     make(map[uuid.UUID]*OverrideSlot),
	}
}

func (m *mockOverrideRepo) Create(_ context.Context, o *DateOverride) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
	m.overrides[o.ID] = o
	return nil
}

func (m *mockOverrideRepo) GetByID(_ context.Context, id uuid.UUID) (*DateOverride, error) {
	o, ok := m.overrides[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return o, nil
}

func (m *mockOverrideRepo) Update(_ context.Context, o *DateOverride) error {
	m.overrides[o.ID] = o
	return nil
}

func (m *mockOverrideRepo) ListByLocation(_ context.Context, locationID uuid.UUID, limit, offset int) ([]*DateOverride, int, error) {
	var result []*DateOverride
	for _, o := range m.overrides {
		if o.LocationID == locationID {
			result = append(result, o)
		}
	}
	return result, len(result), nil
}

func (m *mockOverrideRepo) ListActiveForDate(ctx context.Context, locationID uuid.UUID, date string) ([]*DateOverride, error) {
	var result []*DateOverride
	for _, o := range m.overrides {
		if o.LocationID == locationID && o.Active != nil && *o.Active && o.Covers(date) {
			slots, _ := m.GetSlots(ctx, o.ID)
			o.Slots = slots
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *mockOverrideRepo) AddSlot(_ context.Context, sl *OverrideSlot) error {
	sl.ID = uuid.New()
	m.slots[sl.ID] = sl
	return nil
}

func (m *mockOverrideRepo) UpdateSlot(_ context.Context, sl *OverrideSlot) error {
	m.slots[sl.ID] = sl
	return nil
}

func (m *mockOverrideRepo) GetSlots(_ context.Context, overrideID uuid.UUID) ([]*OverrideSlot, error) {
	var result []*OverrideSlot
	for _, sl := range m.slots {
		if sl.OverrideID == overrideID {
			result = append(result, sl)
		}
	}
	return result, nil
}

// -- Business hour tests --

func TestAddBusinessHour_Validation(t *testing.T) {
	svc := NewService(newMockHourRepo(), newMockOverrideRepo(), nil)
	ctx := context.Background()
	locID := uuid.New()

	cases := []struct {
		name string
		bh   BusinessHour
	}{
		{"missing location", BusinessHour{Weekday: 1, StartTime: "09:00", EndTime: "17:00"}},
		{"bad weekday", BusinessHour{LocationID: locID, Weekday: 7, StartTime: "09:00", EndTime: "17:00"}},
		{"bad start", BusinessHour{LocationID: locID, Weekday: 1, StartTime: "25:00", EndTime: "17:00"}},
		{"start after end", BusinessHour{LocationID: locID, Weekday: 1, StartTime: "17:00", EndTime: "09:00"}},
		{"zero length", BusinessHour{LocationID: locID, Weekday: 1, StartTime: "09:00", EndTime: "09:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.AddBusinessHour(ctx, &tc.bh); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAddBusinessHour_RejectsOverlap(t *testing.T) {
	svc := NewService(newMockHourRepo(), newMockOverrideRepo(), nil)
	ctx := context.Background()
	locID := uuid.New()

	first := &BusinessHour{LocationID: locID, Weekday: 1, StartTime: "09:00", EndTime: "12:00"}
	if err := svc.AddBusinessHour(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	overlapping := &BusinessHour{LocationID: locID, Weekday: 1, StartTime: "11:00", EndTime: "14:00"}
	if err := svc.AddBusinessHour(ctx, overlapping); err == nil {
		t.Error("expected overlap error")
	}

	// Touching edges is allowed.
	adjacent := &BusinessHour{LocationID: locID, Weekday: 1, StartTime: "12:00", EndTime: "17:00"}
	if err := svc.AddBusinessHour(ctx, adjacent); err != nil {
		t.Errorf("adjacent interval should be accepted: %v", err)
	}

	// Same times on a different weekday are fine.
	otherDay := &BusinessHour{LocationID: locID, Weekday: 2, StartTime: "11:00", EndTime: "14:00"}
	if err := svc.AddBusinessHour(ctx, otherDay); err != nil {
		t.Errorf("different weekday should be accepted: %v", err)
	}
}

func TestDeactivateBusinessHour_AllowsReplacement(t *testing.T) {
	svc := NewService(newMockHourRepo(), newMockOverrideRepo(), nil)
	ctx := context.Background()
	locID := uuid.New()

	bh := &BusinessHour{LocationID: locID, Weekday: 1, StartTime: "09:00", EndTime: "12:00"}
	if err := svc.AddBusinessHour(ctx, bh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deactivated, err := svc.DeactivateBusinessHour(ctx, bh.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deactivated.Active == nil || *deactivated.Active {
		t.Error("expected hour to be inactive")
	}

	// The slot freed by deactivation can be reused.
	replacement := &BusinessHour{LocationID: locID, Weekday: 1, StartTime: "10:00", EndTime: "13:00"}
	if err := svc.AddBusinessHour(ctx, replacement); err != nil {
		t.Errorf("replacement over an inactive interval should be accepted: %v", err)
	}

	// Re-activating the original now collides with the replacement.
	if _, err := svc.ActivateBusinessHour(ctx, bh.ID); err == nil {
		t.Error("expected overlap error on re-activation")
	}
}

// -- Override tests --

func TestCreateOverride_Validation(t *testing.T) {
	svc := NewService(newMockHourRepo(), newMockOverrideRepo(), nil)
	ctx := context.Background()
	locID := uuid.New()

	cases := []struct {
		name string
		o    DateOverride
	}{
		{"missing location", DateOverride{StartDate: "2025-08-01", EndDate: "2025-08-02"}},
		{"bad start date", DateOverride{LocationID: locID, StartDate: "01-08-2025", EndDate: "2025-08-02"}},
		{"reversed range", DateOverride{LocationID: locID, StartDate: "2025-08-05", EndDate: "2025-08-01"}},
		{"closed with slots", DateOverride{LocationID: locID, StartDate: "2025-08-01", EndDate: "2025-08-02",
			Closed: true, Slots: []*OverrideSlot{{StartTime: "09:00", EndTime: "12:00"}}}},
		{"bad slot interval", DateOverride{LocationID: locID, StartDate: "2025-08-01", EndDate: "2025-08-02",
			Slots: []*OverrideSlot{{StartTime: "12:00", EndTime: "09:00"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.CreateOverride(ctx, &tc.o); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateOverride_PersistsSlots(t *testing.T) {
	repo := newMockOverrideRepo()
	svc := NewService(newMockHourRepo(), repo, nil)
	ctx := context.Background()

	o := &DateOverride{
		LocationID: uuid.New(),
		StartDate:  "2025-08-01",
		EndDate:    "2025-08-01",
		Slots: []*OverrideSlot{
			{StartTime: "10:00", EndTime: "12:00"},
			{StartTime: "14:00", EndTime: "16:00"},
		},
	}
	if err := svc.CreateOverride(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slots, err := repo.GetSlots(ctx, o.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Errorf("expected 2 slots persisted, got %d", len(slots))
	}
	for _, sl := range slots {
		if sl.Active == nil || !*sl.Active {
			t.Error("expected override slots to default to active")
		}
	}
}

func TestAddOverrideSlot_RejectsClosedOverride(t *testing.T) {
	repo := newMockOverrideRepo()
	svc := NewService(newMockHourRepo(), repo, nil)
	ctx := context.Background()

	o := &DateOverride{LocationID: uuid.New(), StartDate: "2025-08-01", EndDate: "2025-08-07", Closed: true}
	if err := svc.CreateOverride(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sl := &OverrideSlot{OverrideID: o.ID, StartTime: "09:00", EndTime: "10:00"}
	if err := svc.AddOverrideSlot(ctx, sl); err == nil {
		t.Error("expected error adding a slot to a closed override")
	}
}

func TestOverride_Covers(t *testing.T) {
	o := &DateOverride{StartDate: "2025-08-01", EndDate: "2025-08-07"}
	if !o.Covers("2025-08-01") || !o.Covers("2025-08-07") || !o.Covers("2025-08-03") {
		t.Error("expected inclusive range to cover boundary and interior dates")
	}
	if o.Covers("2025-07-31") || o.Covers("2025-08-08") {
		t.Error("expected dates outside the range to be excluded")
	}
	if o.SpanDays() != 7 {
		t.Errorf("expected span of 7 days, got %d", o.SpanDays())
	}
}
