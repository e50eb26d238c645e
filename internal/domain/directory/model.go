package directory

import (
	"time"

	"github.com/google/uuid"
)

// Location maps to the location table. Its timezone governs how weekly hours
// and date overrides are interpreted when slots are generated.
type Location struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Timezone           string    `db:"timezone" json:"timezone"`
	DefaultSlotMinutes int       `db:"default_slot_minutes" json:"default_slot_minutes"`
	Address            *string   `db:"address" json:"address,omitempty"`
	Phone              *string   `db:"phone" json:"phone,omitempty"`
	Active             *bool     `db:"active" json:"active,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Therapist maps to the therapist table. A therapist works out of one
// location; bookings reference both by identifier.
type Therapist struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	Specialty  *string    `db:"specialty" json:"specialty,omitempty"`
	LocationID *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Active     *bool      `db:"active" json:"active,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
