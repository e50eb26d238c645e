package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/carebook/carebook/internal/domain/availability"
	"github.com/carebook/carebook/internal/platform/metrics"
)

var (
	ErrNotFound      = errors.New("booking not found")
	ErrTerminalState = errors.New("booking is in a terminal state")
)

// Checker is the availability guard every slot-changing mutation passes
// through before touching storage.
type Checker interface {
	CheckAvailabilityExcluding(ctx context.Context, therapistID uuid.UUID, start time.Time, durationMinutes int, excludeBookingID uuid.UUID) (*availability.CheckResult, error)
	InvalidateDay(ctx context.Context, locationID uuid.UUID, at time.Time)
}

type Service struct {
	repo    Repository
	checker Checker
}

func NewService(repo Repository, checker Checker) *Service {
	return &Service{repo: repo, checker: checker}
}

// Create books a slot. The availability guard rejects off-grid or occupied
// instants; the storage unique index settles concurrent winners.
func (s *Service) Create(ctx context.Context, b *Booking) error {
	if err := validateBooking(b); err != nil {
		return err
	}
	if b.Status == "" {
		b.Status = StatusPending
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return fmt.Errorf("new bookings must be pending or confirmed, got %q", b.Status)
	}

	if err := s.guard(ctx, b.TherapistID, b.StartTime, b.DurationMinutes, uuid.Nil); err != nil {
		metrics.IncBookingMutation("create", "conflict")
		return err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		metrics.IncBookingMutation("create", outcomeOf(err))
		return err
	}
	metrics.IncBookingMutation("create", "ok")
	s.checker.InvalidateDay(ctx, b.LocationID, b.StartTime)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return b, nil
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]*Booking, int, error) {
	return s.repo.Search(ctx, params)
}

// Reschedule moves a booking to a new start instant. Moving to its current
// slot is a no-op that succeeds.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, newDurationMinutes int) (*Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Terminal() {
		return nil, fmt.Errorf("reschedule %s: %w", id, ErrTerminalState)
	}
	if newDurationMinutes == 0 {
		newDurationMinutes = b.DurationMinutes
	}
	if b.StartTime.Equal(newStart) && b.DurationMinutes == newDurationMinutes {
		return b, nil
	}

	if err := s.guard(ctx, b.TherapistID, newStart, newDurationMinutes, b.ID); err != nil {
		metrics.IncBookingMutation("reschedule", "conflict")
		return nil, err
	}
	oldStart := b.StartTime
	b.StartTime = newStart
	b.DurationMinutes = newDurationMinutes
	if err := s.repo.Update(ctx, b); err != nil {
		metrics.IncBookingMutation("reschedule", outcomeOf(err))
		return nil, err
	}
	metrics.IncBookingMutation("reschedule", "ok")
	s.checker.InvalidateDay(ctx, b.LocationID, oldStart)
	s.checker.InvalidateDay(ctx, b.LocationID, newStart)
	return b, nil
}

// Reassign moves a booking to a different therapist at the same instant.
func (s *Service) Reassign(ctx context.Context, id, newTherapistID uuid.UUID) (*Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Terminal() {
		return nil, fmt.Errorf("reassign %s: %w", id, ErrTerminalState)
	}
	if b.TherapistID == newTherapistID {
		return b, nil
	}

	if err := s.guard(ctx, newTherapistID, b.StartTime, b.DurationMinutes, b.ID); err != nil {
		metrics.IncBookingMutation("reassign", "conflict")
		return nil, err
	}
	b.TherapistID = newTherapistID
	if err := s.repo.Update(ctx, b); err != nil {
		metrics.IncBookingMutation("reassign", outcomeOf(err))
		return nil, err
	}
	metrics.IncBookingMutation("reassign", "ok")
	s.checker.InvalidateDay(ctx, b.LocationID, b.StartTime)
	return b, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.transition(ctx, id, "confirm", StatusConfirmed, StatusPending)
}

// Cancel frees the slot. Cancelling an already-cancelled booking succeeds.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCancelled {
		return b, nil
	}
	if b.Status == StatusCompleted {
		return nil, fmt.Errorf("cancel %s: %w", id, ErrTerminalState)
	}
	b.Status = StatusCancelled
	if err := s.repo.Update(ctx, b); err != nil {
		metrics.IncBookingMutation("cancel", outcomeOf(err))
		return nil, err
	}
	metrics.IncBookingMutation("cancel", "ok")
	s.checker.InvalidateDay(ctx, b.LocationID, b.StartTime)
	return b, nil
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.transition(ctx, id, "complete", StatusCompleted, StatusConfirmed)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, op, target string, allowedFrom ...string) (*Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == target {
		return b, nil
	}
	allowed := false
	for _, from := range allowedFrom {
		if b.Status == from {
			allowed = true
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%s %s from %s: %w", op, id, b.Status, ErrTerminalState)
	}
	b.Status = target
	if err := s.repo.Update(ctx, b); err != nil {
		metrics.IncBookingMutation(op, outcomeOf(err))
		return nil, err
	}
	metrics.IncBookingMutation(op, "ok")
	return b, nil
}

func (s *Service) guard(ctx context.Context, therapistID uuid.UUID, start time.Time, durationMinutes int, excludeID uuid.UUID) error {
	res, err := s.checker.CheckAvailabilityExcluding(ctx, therapistID, start, durationMinutes, excludeID)
	if err != nil {
		return err
	}
	if res.IsAvailable {
		return nil
	}
	conflict := &ConflictError{TherapistID: therapistID, StartTime: start}
	if res.ConflictingBooking != nil {
		conflict.ConflictingBookingID = res.ConflictingBooking.ID
	}
	log.Debug().
		Str("therapist_id", therapistID.String()).
		Time("start", start).
		Str("conflicting_booking", conflict.ConflictingBookingID.String()).
		Msg("booking guard rejected slot")
	return conflict
}

func validateBooking(b *Booking) error {
	if b.TherapistID == uuid.Nil {
		return errors.New("therapist_id is required")
	}
	if b.LocationID == uuid.Nil {
		return errors.New("location_id is required")
	}
	if b.PatientName == "" {
		return errors.New("patient_name is required")
	}
	if b.PatientEmail == "" {
		return errors.New("patient_email is required")
	}
	if b.StartTime.IsZero() {
		return errors.New("start_time is required")
	}
	// The stored row carries the duration verbatim, so the guard must see
	// the same value the write will persist.
	if b.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes: %w", availability.ErrInvalidDuration)
	}
	return nil
}

func outcomeOf(err error) string {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return "conflict"
	}
	return "error"
}
