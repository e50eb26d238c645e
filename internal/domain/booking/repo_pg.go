package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebook/carebook/internal/domain/availability"
	"github.com/carebook/carebook/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const bookingCols = `id, therapist_id, location_id, patient_name, patient_email, start_time, duration_minutes, status, notes, created_at, updated_at`

func (r *repoPG) scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.TherapistID, &b.LocationID, &b.PatientName, &b.PatientEmail,
		&b.StartTime, &b.DurationMinutes, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO booking (id, therapist_id, location_id, patient_name, patient_email, start_time, duration_minutes, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.TherapistID, b.LocationID, b.PatientName, b.PatientEmail,
		b.StartTime, b.DurationMinutes, b.Status, b.Notes)
	return r.translateUnique(ctx, err, b)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.scanBooking(r.conn(ctx).QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, b *Booking) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE booking SET therapist_id=$2, location_id=$3, patient_name=$4, patient_email=$5,
			start_time=$6, duration_minutes=$7, status=$8, notes=$9, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.TherapistID, b.LocationID, b.PatientName, b.PatientEmail,
		b.StartTime, b.DurationMinutes, b.Status, b.Notes)
	return r.translateUnique(ctx, err, b)
}

func (r *repoPG) Search(ctx context.Context, params SearchParams) ([]*Booking, int, error) {
	query := `SELECT ` + bookingCols + ` FROM booking WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM booking WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, arg interface{}) {
		query += fmt.Sprintf(clause, idx)
		countQuery += fmt.Sprintf(clause, idx)
		args = append(args, arg)
		idx++
	}
	if params.TherapistID != uuid.Nil {
		add(` AND therapist_id = $%d`, params.TherapistID)
	}
	if params.LocationID != uuid.Nil {
		add(` AND location_id = $%d`, params.LocationID)
	}
	if params.Status != "" {
		add(` AND status = $%d`, params.Status)
	}
	if !params.From.IsZero() {
		add(` AND start_time >= $%d`, params.From)
	}
	if !params.To.IsZero() {
		add(` AND start_time < $%d`, params.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY start_time ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

func (r *repoPG) FindActiveInRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]availability.BookingWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, therapist_id, start_time, duration_minutes FROM booking
		WHERE therapist_id = $1 AND status <> 'cancelled' AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`,
		therapistID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var windows []availability.BookingWindow
	for rows.Next() {
		var bw availability.BookingWindow
		if err := rows.Scan(&bw.ID, &bw.TherapistID, &bw.Start, &bw.DurationMinutes); err != nil {
			return nil, err
		}
		windows = append(windows, bw)
	}
	return windows, nil
}

// translateUnique maps a violation of the partial unique index on
// (therapist_id, start_time) to a ConflictError, resolving the holding
// booking's id when possible.
func (r *repoPG) translateUnique(ctx context.Context, err error, b *Booking) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	conflict := &ConflictError{TherapistID: b.TherapistID, StartTime: b.StartTime}
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT id FROM booking
		WHERE therapist_id = $1 AND start_time = $2 AND status <> 'cancelled' AND id <> $3
		LIMIT 1`,
		b.TherapistID, b.StartTime, b.ID)
	_ = row.Scan(&conflict.ConflictingBookingID)
	return conflict
}
