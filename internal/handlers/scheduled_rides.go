package handlers

import (
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduleRideInput struct {
	PickupAddress string    `json:"pickupAddress" binding:"required"`
	PickupLat     float64   `json:"pickupLat" binding:"required"`
	PickupLng     float64   `json:"pickupLng" binding:"required"`
	DropAddress   string    `json:"dropAddress" binding:"required"`
	DropLat       float64   `json:"dropLat" binding:"required"`
	DropLng       float64   `json:"dropLng" binding:"required"`
	VehicleType   string    `json:"vehicleType" binding:"required"`
	Bid           int       `json:"bid" binding:"required,gt=0"`
	Note          string    `json:"note"`
	ScheduledFor  time.Time `json:"scheduledFor" binding:"required"`
}

// ScheduleRide books a ride for a future slot
func ScheduleRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input ScheduleRideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if !models.ValidVehicleType(input.VehicleType) {
			c.JSON(400, gin.H{"error": "Vehicle type must be bike, auto or car"})
			return
		}
		if input.ScheduledFor.Before(time.Now().Add(30 * time.Minute)) {
			c.JSON(400, gin.H{"error": "Scheduled rides must be at least 30 minutes ahead"})
			return
		}

		ride := models.ScheduledRideBooking{
			ID:            uuid.NewString(),
			UserID:        userId,
			PickupAddress: input.PickupAddress,
			PickupLat:     input.PickupLat,
			PickupLng:     input.PickupLng,
			DropAddress:   input.DropAddress,
			DropLat:       input.DropLat,
			DropLng:       input.DropLng,
			VehicleType:   input.VehicleType,
			DistanceKm:    utils.HaversineDistance(input.PickupLat, input.PickupLng, input.DropLat, input.DropLng),
			Bid:           input.Bid,
			Note:          input.Note,
			ScheduledFor:  input.ScheduledFor.UTC(),
			Status:        models.ScheduledStatusScheduled,
		}
		if err := db.Create(&ride).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to schedule ride"})
			return
		}

		c.JSON(201, ride)
	}
}

// ListScheduledRides returns the rider's upcoming scheduled rides
func ListScheduledRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var rides []models.ScheduledRideBooking
		if err := db.Where("user_id = ? AND status <> ?", userId, models.ScheduledStatusCancelled).
			Order("scheduled_for ASC").Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch scheduled rides"})
			return
		}

		c.JSON(200, rides)
	}
}

// CancelScheduledRide cancels a future ride that has not started yet
func CancelScheduledRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		rideId := c.Param("id")

		res := db.Model(&models.ScheduledRideBooking{}).
			Where("id = ? AND user_id = ? AND status = ?", rideId, userId, models.ScheduledStatusScheduled).
			Update("status", models.ScheduledStatusCancelled)
		if res.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to cancel scheduled ride"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(404, gin.H{"error": "Scheduled ride not found or already started"})
			return
		}

		c.JSON(200, gin.H{"message": "Scheduled ride cancelled"})
	}
}
