package model

import "time"

// PC represents one physical workstation in the room.
//
// The owner fields and LastSeen are set if and only if Busy is true; they are
// always written or cleared together in the same transition.
type PC struct {
	ID          string     `gorm:"primaryKey;size:32"`
	Token       string     `gorm:"uniqueIndex;size:64;not null"`
	Busy        bool       `gorm:"not null;default:false"`
	OwnerUserID *string    `gorm:"size:64"`
	OwnerName   *string    `gorm:"size:128"`
	LastSeen    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
