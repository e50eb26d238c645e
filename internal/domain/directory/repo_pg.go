package directory

import (
	"context"
	"fmt"

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

// =========== Location Repository ===========

type locationRepoPG struct{ pool *pgxpool.Pool }

func NewLocationRepoPG(pool *pgxpool.Pool) LocationRepository { return &locationRepoPG{pool: pool} }

func (r *locationRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const locationCols = `id, name, timezone, default_slot_minutes, address, phone, active, created_at, updated_at`

func (r *locationRepoPG) scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Timezone, &l.DefaultSlotMinutes,
		&l.Address, &l.Phone, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *locationRepoPG) Create(ctx context.Context, l *Location) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO location (id, name, timezone, default_slot_minutes, address, phone, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.ID, l.Name, l.Timezone, l.DefaultSlotMinutes, l.Address, l.Phone, l.Active)
	return err
}

func (r *locationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	return r.scanLocation(r.conn(ctx).QueryRow(ctx, `SELECT `+locationCols+` FROM location WHERE id = $1`, id))
}

func (r *locationRepoPG) Update(ctx context.Context, l *Location) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE location SET name=$2, timezone=$3, default_slot_minutes=$4,
			address=$5, phone=$6, active=$7, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.Name, l.Timezone, l.DefaultSlotMinutes, l.Address, l.Phone, l.Active)
	return err
}

func (r *locationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM location WHERE id = $1`, id)
	return err
}

func (r *locationRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Location, int, error) {
	query := `SELECT ` + locationCols + ` FROM location WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM location WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["active"]; ok {
		query += fmt.Sprintf(` AND active = $%d`, idx)
		countQuery += fmt.Sprintf(` AND active = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Location
	for rows.Next() {
		l, err := r.scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, nil
}

// =========== Therapist Repository ===========

type therapistRepoPG struct{ pool *pgxpool.Pool }

func NewTherapistRepoPG(pool *pgxpool.Pool) TherapistRepository { return &therapistRepoPG{pool: pool} }

func (r *therapistRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const therapistCols = `id, name, email, specialty, location_id, active, created_at, updated_at`

func (r *therapistRepoPG) scanTherapist(row pgx.Row) (*Therapist, error) {
	var th Therapist
	err := row.Scan(&th.ID, &th.Name, &th.Email, &th.Specialty,
		&th.LocationID, &th.Active, &th.CreatedAt, &th.UpdatedAt)
	return &th, err
}

func (r *therapistRepoPG) Create(ctx context.Context, th *Therapist) error {
	th.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO therapist (id, name, email, specialty, location_id, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		th.ID, th.Name, th.Email, th.Specialty, th.LocationID, th.Active)
	return err
}

func (r *therapistRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	return r.scanTherapist(r.conn(ctx).QueryRow(ctx, `SELECT `+therapistCols+` FROM therapist WHERE id = $1`, id))
}

func (r *therapistRepoPG) Update(ctx context.Context, th *Therapist) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE therapist SET name=$2, email=$3, specialty=$4, location_id=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		th.ID, th.Name, th.Email, th.Specialty, th.LocationID, th.Active)
	return err
}

func (r *therapistRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM therapist WHERE id = $1`, id)
	return err
}

func (r *therapistRepoPG) ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*Therapist, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM therapist WHERE location_id = $1`, locationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+therapistCols+` FROM therapist WHERE location_id = $1 ORDER BY name ASC LIMIT $2 OFFSET $3`, locationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Therapist
	for rows.Next() {
		th, err := r.scanTherapist(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, th)
	}
	return items, total, nil
}

func (r *therapistRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Therapist, int, error) {
	query := `SELECT ` + therapistCols + ` FROM therapist WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM therapist WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["specialty"]; ok {
		query += fmt.Sprintf(` AND specialty = $%d`, idx)
		countQuery += fmt.Sprintf(` AND specialty = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["active"]; ok {
		query += fmt.Sprintf(` AND active = $%d`, idx)
		countQuery += fmt.Sprintf(` AND active = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Therapist
	for rows.Next() {
		th, err := r.scanTherapist(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, th)
	}
	return items, total, nil
}
