package schedule

import (
	"time"

	"github.com/google/uuid"
)

// BusinessHour is one recurring open interval on a location's weekly
// schedule. Times of day are naive "HH:MM" strings; they are resolved
// against a concrete date and the location's zone only when slots are
// generated. Rows are deactivated rather than deleted so history survives.
type BusinessHour struct {
	ID         uuid.UUID `db:"id" json:"id"`
	LocationID uuid.UUID `db:"location_id" json:"location_id"`
	Weekday    int       `db:"weekday" json:"weekday"` // 0 = Sunday, matching time.Weekday
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Active     *bool     `db:"active" json:"active,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// DateOverride replaces a location's weekly schedule for an inclusive range
// of calendar dates. A closed override removes all open intervals; an open
// one substitutes its own slots for the weekly hours.
type DateOverride struct {
	ID         uuid.UUID `db:"id" json:"id"`
	LocationID uuid.UUID `db:"location_id" json:"location_id"`
	StartDate  string    `db:"start_date" json:"start_date"` // YYYY-MM-DD in the location's zone
	EndDate    string    `db:"end_date" json:"end_date"`
	Closed     bool      `db:"closed" json:"closed"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	Active     *bool     `db:"active" json:"active,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	// Slots is populated on read for open overrides.
	Slots []*OverrideSlot `db:"-" json:"slots,omitempty"`
}

// Covers reports whether the override's inclusive date range contains the
// given "YYYY-MM-DD" date. Dates in this format compare correctly as strings.
func (o *DateOverride) Covers(date string) bool {
	return o.StartDate <= date && date <= o.EndDate
}

// SpanDays returns the number of calendar days the override covers. Used to
// rank overlapping overrides: the tightest range wins.
func (o *DateOverride) SpanDays() int {
	start, err1 := time.Parse("2006-01-02", o.StartDate)
	end, err2 := time.Parse("2006-01-02", o.EndDate)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// OverrideSlot is one open interval carried by a non-closed override.
type OverrideSlot struct {
	ID         uuid.UUID `db:"id" json:"id"`
	OverrideID uuid.UUID `db:"override_id" json:"override_id"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Active     *bool     `db:"active" json:"active,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
