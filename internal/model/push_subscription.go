package model

import "time"

// PushSubscription holds a browser push subscription for an admin who wants
// payment alerts for a specific machine.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	MachineID string    `gorm:"size:32;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
