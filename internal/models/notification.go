package models

import (
	"time"
)

// Notification is an in-app notification row. Delivery to devices is not
// handled here; clients poll or receive the same event over the WebSocket.
type Notification struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"userId" gorm:"not null;index"`
	RideID     string     `json:"rideId,omitempty" gorm:"type:uuid"`
	Type       string     `json:"type" gorm:"not null"`
	Title      string     `json:"title" gorm:"not null"`
	Message    string     `json:"message" gorm:"not null"`
	IsRead     bool       `json:"isRead" gorm:"not null;default:false"`
	DistanceKm float64    `json:"distanceKm,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}

// Notification type constants
const (
	NotificationTypeRideRequest     = "ride_request"
	NotificationTypeCounterOffer    = "counter_offer"
	NotificationTypeCounterResolved = "counter_resolved"
	NotificationTypeRideConfirmed   = "ride_confirmed"
	NotificationTypeRideCancelled   = "ride_cancelled"
)
