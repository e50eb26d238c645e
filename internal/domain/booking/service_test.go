package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/internal/domain/availability"
)

type mockRepo struct {
	items     map[uuid.UUID]*Booking
	createErr error
	updateErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Booking)}
}

func (m *mockRepo) Create(_ context.Context, b *Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	b.ID = uuid.New()
	cp := *b
	m.items[b.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	if b, ok := m.items[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, errors.New("no rows")
}

func (m *mockRepo) Update(_ context.Context, b *Booking) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *b
	m.items[b.ID] = &cp
	return nil
}

func (m *mockRepo) Search(_ context.Context, params SearchParams) ([]*Booking, int, error) {
	var out []*Booking
	for _, b := range m.items {
		if params.TherapistID != uuid.Nil && b.TherapistID != params.TherapistID {
			continue
		}
		if params.Status != "" && b.Status != params.Status {
			continue
		}
		out = append(out, b)
	}
	return out, len(out), nil
}

func (m *mockRepo) FindActiveInRange(_ context.Context, therapistID uuid.UUID, from, to time.Time) ([]availability.BookingWindow, error) {
	var out []availability.BookingWindow
	for _, b := range m.items {
		if b.TherapistID != therapistID || b.Status == StatusCancelled {
			continue
		}
		if b.StartTime.Before(from) || !b.StartTime.Before(to) {
			continue
		}
		out = append(out, availability.BookingWindow{
			ID: b.ID, TherapistID: b.TherapistID,
			Start: b.StartTime, DurationMinutes: b.DurationMinutes,
		})
	}
	return out, nil
}

// mockChecker scripts the availability answer and records exclusions.
type mockChecker struct {
	available    bool
	conflictWith *availability.BookingWindow
	err          error
	lastExclude  uuid.UUID
	calls        int
	invalidated  int
}

func (m *mockChecker) CheckAvailabilityExcluding(_ context.Context, _ uuid.UUID, _ time.Time, _ int, excludeID uuid.UUID) (*availability.CheckResult, error) {
	m.calls++
	m.lastExclude = excludeID
	if m.err != nil {
		return nil, m.err
	}
	return &availability.CheckResult{IsAvailable: m.available, ConflictingBooking: m.conflictWith}, nil
}

func (m *mockChecker) InvalidateDay(_ context.Context, _ uuid.UUID, _ time.Time) {
	m.invalidated++
}

func validBooking() *Booking {
	return &Booking{
		TherapistID:     uuid.New(),
		LocationID:      uuid.New(),
		PatientName:     "Alex Kim",
		PatientEmail:    "alex@example.com",
		StartTime:       time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	}
}

func TestCreate(t *testing.T) {
	repo := newMockRepo()
	checker := &mockChecker{available: true}
	svc := NewService(repo, checker)

	b := validBooking()
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if b.Status != StatusPending {
		t.Errorf("expected default status pending, got %s", b.Status)
	}
	if checker.lastExclude != uuid.Nil {
		t.Error("create should not exclude any booking")
	}
	if checker.invalidated != 1 {
		t.Errorf("expected one cache invalidation, got %d", checker.invalidated)
	}
}

func TestCreate_SlotHeld(t *testing.T) {
	holder := uuid.New()
	repo := newMockRepo()
	checker := &mockChecker{
		available:    false,
		conflictWith: &availability.BookingWindow{ID: holder},
	}
	svc := NewService(repo, checker)

	err := svc.Create(context.Background(), validBooking())
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ConflictingBookingID != holder {
		t.Errorf("expected conflicting booking %s, got %s", holder, conflict.ConflictingBookingID)
	}
	if len(repo.items) != 0 {
		t.Error("rejected booking must not be stored")
	}
}

func TestCreate_OffGridSlot(t *testing.T) {
	svc := NewService(newMockRepo(), &mockChecker{available: false})

	err := svc.Create(context.Background(), validBooking())
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ConflictingBookingID != uuid.Nil {
		t.Error("off-grid rejection carries no conflicting booking id")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), &mockChecker{available: true})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Booking)
	}{
		{"missing therapist", func(b *Booking) { b.TherapistID = uuid.Nil }},
		{"missing location", func(b *Booking) { b.LocationID = uuid.Nil }},
		{"missing patient name", func(b *Booking) { b.PatientName = "" }},
		{"missing patient email", func(b *Booking) { b.PatientEmail = "" }},
		{"missing start time", func(b *Booking) { b.StartTime = time.Time{} }},
		{"cancelled on create", func(b *Booking) { b.Status = StatusCancelled }},
		{"zero duration", func(b *Booking) { b.DurationMinutes = 0 }},
		{"negative duration", func(b *Booking) { b.DurationMinutes = -30 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := validBooking()
			tc.mutate(b)
			if err := svc.Create(ctx, b); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreate_ZeroDurationNotPersisted(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockChecker{available: true})

	b := validBooking()
	b.DurationMinutes = 0
	err := svc.Create(context.Background(), b)
	if !errors.Is(err, availability.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if len(repo.items) != 0 {
		t.Error("zero-duration booking must not be stored")
	}
}

func TestCreate_StorageConstraintConflict(t *testing.T) {
	// The checker can race and say yes while the unique index says no.
	repo := newMockRepo()
	repo.createErr = &ConflictError{TherapistID: uuid.New(), ConflictingBookingID: uuid.New()}
	svc := NewService(repo, &mockChecker{available: true})

	err := svc.Create(context.Background(), validBooking())
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError from storage, got %v", err)
	}
}

func TestReschedule(t *testing.T) {
	repo := newMockRepo()
	checker := &mockChecker{available: true}
	svc := NewService(repo, checker)

	b := validBooking()
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checker.invalidated = 0

	newStart := b.StartTime.Add(time.Hour)
	moved, err := svc.Reschedule(context.Background(), b.ID, newStart, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !moved.StartTime.Equal(newStart) {
		t.Errorf("expected start %v, got %v", newStart, moved.StartTime)
	}
	if moved.DurationMinutes != b.DurationMinutes {
		t.Error("zero duration should keep the existing duration")
	}
	if checker.lastExclude != b.ID {
		t.Error("reschedule must exclude the booking being moved")
	}
	if checker.invalidated != 2 {
		t.Errorf("expected old and new day invalidated, got %d", checker.invalidated)
	}
}

func TestReschedule_NoOpSameSlot(t *testing.T) {
	repo := newMockRepo()
	checker := &mockChecker{available: true}
	svc := NewService(repo, checker)

	b := validBooking()
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checker.calls = 0

	same, err := svc.Reschedule(context.Background(), b.ID, b.StartTime, b.DurationMinutes)
	if err != nil {
		t.Fatalf("no-op reschedule should succeed, got %v", err)
	}
	if !same.StartTime.Equal(b.StartTime) {
		t.Error("booking should be unchanged")
	}
	if checker.calls != 0 {
		t.Error("no-op reschedule should not consult the checker")
	}
}

func TestReschedule_Conflict(t *testing.T) {
	repo := newMockRepo()
	checker := &mockChecker{available: true}
	svc := NewService(repo, checker)

	b := validBooking()
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	holder := uuid.New()
	checker.available = false
	checker.conflictWith = &availability.BookingWindow{ID: holder}

	_, err := svc.Reschedule(context.Background(), b.ID, b.StartTime.Add(time.Hour), 0)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	kept, _ := svc.Get(context.Background(), b.ID)
	if !kept.StartTime.Equal(b.StartTime) {
		t.Error("failed reschedule must not move the booking")
	}
}

func TestReschedule_TerminalBooking(t *testing.T) {
	repo := newMockRepo()
	checker := &mockChecker{available: true}
	svc := NewService(repo, checker)

	b := validBooking()
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Reschedule(context.Background(), b.ID, b.StartTime.Add(time.Hour), 0)
	if !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
}

func TestReassign(t *testing.T) {
	repo := newMockRepo()
	checker := &mockChecker{available: true}
	svc := NewService(repo, checker)

	b := validBooking()
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same therapist is a no-op.
	checker.calls = 0
	if _, err := svc.Reassign(context.Background(), b.ID, b.TherapistID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checker.calls != 0 {
		t.Error("no-op reassign should not consult the checker")
	}

	other := uuid.New()
	moved, err := svc.Reassign(context.Background(), b.ID, other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.TherapistID != other {
		t.Errorf("expected therapist %s, got %s", other, moved.TherapistID)
	}
	if checker.lastExclude != b.ID {
		t.Error("reassign must exclude the booking being moved")
	}
}

func TestStatusTransitions(t *testing.T) {
	repo := newMockRepo()
	checker := &mockChecker{available: true}
	svc := NewService(repo, checker)
	ctx := context.Background()

	b := validBooking()
	if err := svc.Create(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// pending -> confirmed -> completed.
	if _, err := svc.Confirm(ctx, b.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.Complete(ctx, b.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.Cancel(ctx, b.ID); !errors.Is(err, ErrTerminalState) {
		t.Errorf("cancel of completed: expected ErrTerminalState, got %v", err)
	}
	if _, err := svc.Reschedule(ctx, b.ID, b.StartTime.Add(time.Hour), 0); !errors.Is(err, ErrTerminalState) {
		t.Errorf("reschedule of completed: expected ErrTerminalState, got %v", err)
	}
}

func TestComplete_RequiresConfirmed(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockChecker{available: true})

	b := validBooking()
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Complete(context.Background(), b.ID); err == nil {
		t.Error("completing a pending booking should fail")
	}
}

func TestCancel_Idempotent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockChecker{available: true})
	ctx := context.Background()

	b := validBooking()
	if err := svc.Create(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	again, err := svc.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("second cancel should succeed, got %v", err)
	}
	if again.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", again.Status)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), &mockChecker{})
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
