package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is a registered account or a persisted guest shell.
type User struct {
	ID          string `gorm:"primaryKey" json:"id"` // anonymous UUID
	DisplayName string `gorm:"type:text" json:"display_name"`
	Gender      string // raw stored value, normalized on read
	IsPro       bool   // paid flag, gates gender filters
	IsGuest     bool
	GenderPref  string         // the user's own stored filter, Pro only
	Interests   pq.StringArray `gorm:"type:text[]"`
}

// BeforeCreate generates the anonymous UUID if the caller did not set one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Projection is the fixed read-only slice of a user the matching core
// consumes. Gender is already normalized and interests lower-cased.
type Projection struct {
	ID          string
	DisplayName string
	Gender      Gender
	IsPro       bool
	IsGuest     bool
	Interests   []string
	// Filter is the user's own stored gender preference, enforced against
	// incoming requesters only while IsPro holds.
	Filter GenderFilter
}
