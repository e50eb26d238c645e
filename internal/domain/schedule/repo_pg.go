package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebook/carebook/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== BusinessHour Repository ===========

type businessHourRepoPG struct{ pool *pgxpool.Pool }

func NewBusinessHourRepoPG(pool *pgxpool.Pool) BusinessHourRepository {
	return &businessHourRepoPG{pool: pool}
}

func (r *businessHourRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const hourCols = `id, location_id, weekday, start_time, end_time, active, created_at, updated_at`

func (r *businessHourRepoPG) scanHour(row pgx.Row) (*BusinessHour, error) {
	var bh BusinessHour
	err := row.Scan(&bh.ID, &bh.LocationID, &bh.Weekday, &bh.StartTime, &bh.EndTime,
		&bh.Active, &bh.CreatedAt, &bh.UpdatedAt)
	return &bh, err
}

func (r *businessHourRepoPG) Create(ctx context.Context, bh *BusinessHour) error {
	bh.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO business_hour (id, location_id, weekday, start_time, end_time, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		bh.ID, bh.LocationID, bh.Weekday, bh.StartTime, bh.EndTime, bh.Active)
	return err
}

func (r *businessHourRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BusinessHour, error) {
	return r.scanHour(r.conn(ctx).QueryRow(ctx, `SELECT `+hourCols+` FROM business_hour WHERE id = $1`, id))
}

func (r *businessHourRepoPG) Update(ctx context.Context, bh *BusinessHour) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE business_hour SET weekday=$2, start_time=$3, end_time=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		bh.ID, bh.Weekday, bh.StartTime, bh.EndTime, bh.Active)
	return err
}

func (r *businessHourRepoPG) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]*BusinessHour, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+hourCols+` FROM business_hour
		WHERE location_id = $1
		ORDER BY weekday ASC, start_time ASC`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BusinessHour
	for rows.Next() {
		bh, err := r.scanHour(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, bh)
	}
	return items, nil
}

func (r *businessHourRepoPG) ListActiveByWeekday(ctx context.Context, locationID uuid.UUID, weekday time.Weekday) ([]*BusinessHour, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+hourCols+` FROM business_hour
		WHERE location_id = $1 AND weekday = $2 AND active = TRUE
		ORDER BY start_time ASC`, locationID, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BusinessHour
	for rows.Next() {
		bh, err := r.scanHour(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, bh)
	}
	return items, nil
}

// =========== DateOverride Repository ===========

type dateOverrideRepoPG struct{ pool *pgxpool.Pool }

func NewDateOverrideRepoPG(pool *pgxpool.Pool) DateOverrideRepository {
	return &dateOverrideRepoPG{pool: pool}
}

func (r *dateOverrideRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const overrideCols = `id, location_id, start_date, end_date, closed, reason, active, created_at, updated_at`

func (r *dateOverrideRepoPG) scanOverride(row pgx.Row) (*DateOverride, error) {
	var o DateOverride
	err := row.Scan(&o.ID, &o.LocationID, &o.StartDate, &o.EndDate, &o.Closed,
		&o.Reason, &o.Active, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *dateOverrideRepoPG) Create(ctx context.Context, o *DateOverride) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO date_override (id, location_id, start_date, end_date, closed, reason, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.LocationID, o.StartDate, o.EndDate, o.Closed, o.Reason, o.Active)
	return err
}

func (r *dateOverrideRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DateOverride, error) {
	o, err := r.scanOverride(r.conn(ctx).QueryRow(ctx, `SELECT `+overrideCols+` FROM date_override WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	o.Slots, err = r.GetSlots(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *dateOverrideRepoPG) Update(ctx context.Context, o *DateOverride) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE date_override SET start_date=$2, end_date=$3, closed=$4, reason=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.StartDate, o.EndDate, o.Closed, o.Reason, o.Active)
	return err
}

func (r *dateOverrideRepoPG) ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*DateOverride, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM date_override WHERE location_id = $1`, locationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+overrideCols+` FROM date_override
		WHERE location_id = $1
		ORDER BY start_date DESC LIMIT $2 OFFSET $3`, locationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DateOverride
	for rows.Next() {
		o, err := r.scanOverride(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, nil
}

func (r *dateOverrideRepoPG) ListActiveForDate(ctx context.Context, locationID uuid.UUID, date string) ([]*DateOverride, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+overrideCols+` FROM date_override
		WHERE location_id = $1 AND active = TRUE AND start_date <= $2 AND end_date >= $2
		ORDER BY created_at DESC`, locationID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DateOverride
	for rows.Next() {
		o, err := r.scanOverride(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	for _, o := range items {
		if o.Closed {
			continue
		}
		o.Slots, err = r.GetSlots(ctx, o.ID)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

const overrideSlotCols = `id, override_id, start_time, end_time, active, created_at, updated_at`

func (r *dateOverrideRepoPG) AddSlot(ctx context.Context, sl *OverrideSlot) error {
	sl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO override_slot (id, override_id, start_time, end_time, active)
		VALUES ($1,$2,$3,$4,$5)`,
		sl.ID, sl.OverrideID, sl.StartTime, sl.EndTime, sl.Active)
	return err
}

func (r *dateOverrideRepoPG) UpdateSlot(ctx context.Context, sl *OverrideSlot) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE override_slot SET start_time=$2, end_time=$3, active=$4, updated_at=NOW()
		WHERE id = $1`,
		sl.ID, sl.StartTime, sl.EndTime, sl.Active)
	return err
}

func (r *dateOverrideRepoPG) GetSlots(ctx context.Context, overrideID uuid.UUID) ([]*OverrideSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+overrideSlotCols+` FROM override_slot
		WHERE override_id = $1 ORDER BY start_time ASC`, overrideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OverrideSlot
	for rows.Next() {
		var sl OverrideSlot
		if err := rows.Scan(&sl.ID, &sl.OverrideID, &sl.StartTime, &sl.EndTime,
			&sl.Active, &sl.CreatedAt, &sl.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &sl)
	}
	return items, nil
}
