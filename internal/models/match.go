package models

import "time"

// Match modes.
const (
	ModeRandom   = "random"
	ModeInterest = "interest"
)

// Match is the persisted record of one successful pairing. Append-only:
// this core creates it once and never updates it.
type Match struct {
	RoomID    string `gorm:"primaryKey"`
	User1ID   string `gorm:"index"`
	User2ID   string `gorm:"index"`
	Mode      string
	CreatedAt time.Time
}
