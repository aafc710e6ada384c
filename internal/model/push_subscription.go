package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// A subscriber is notified when one of its PCs becomes free.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	PCs []*PC `gorm:"many2many:subscription_pc_mapping;"`
}
