package handlers

import (
	"log"
	"time"

	"github.com/bidzi/bidzi-backend/internal/ingest"
	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/internal/services"
	"github.com/bidzi/bidzi-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LocationInput struct {
	Latitude    float64 `json:"lat" binding:"required"`
	Longitude   float64 `json:"lng" binding:"required"`
	Heading     float64 `json:"heading"`
	IsOnline    *bool   `json:"isOnline"`
	IsAvailable *bool   `json:"isAvailable"`
}

// UpdateLocation records a driver position ping. The row in driver_locations
// is the durable truth; Redis GEO serves dispatch lookups and Kafka feeds the
// geo consumer. Redis or Kafka being down degrades matching, not the ping.
func UpdateLocation(db *gorm.DB, producer *ingest.Producer) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")

		var input LocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if !utils.ValidCoordinates(input.Latitude, input.Longitude) {
			c.JSON(400, gin.H{"error": "Invalid coordinates"})
			return
		}

		var driver models.User
		if err := db.First(&driver, driverId).Error; err != nil {
			c.JSON(404, gin.H{"error": "Driver not found"})
			return
		}

		online := true
		if input.IsOnline != nil {
			online = *input.IsOnline
		}
		available := true
		if input.IsAvailable != nil {
			available = *input.IsAvailable
		}

		location := models.DriverLocation{
			DriverID:    driverId,
			Latitude:    input.Latitude,
			Longitude:   input.Longitude,
			Heading:     input.Heading,
			VehicleType: driver.VehicleType,
			IsOnline:    online,
			IsAvailable: available,
			LastSeen:    time.Now().UTC(),
		}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "driver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"latitude", "longitude", "heading", "vehicle_type",
				"is_online", "is_available", "last_seen",
			}),
		}).Create(&location).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to save location"})
			return
		}

		ctx := c.Request.Context()
		if online {
			if err := services.UpsertDriverPosition(ctx, driverId, input.Latitude, input.Longitude, driver.VehicleType, online, available); err != nil {
				log.Printf("redis position for driver %d: %v", driverId, err)
			}
		} else {
			if err := services.RemoveDriverPosition(ctx, driverId, driver.VehicleType); err != nil {
				log.Printf("redis remove for driver %d: %v", driverId, err)
			}
		}

		if err := producer.PublishLocation(ingest.LocationUpdate{
			DriverID:    driverId,
			Latitude:    input.Latitude,
			Longitude:   input.Longitude,
			Heading:     input.Heading,
			VehicleType: driver.VehicleType,
			IsOnline:    online,
			IsAvailable: available,
			Timestamp:   time.Now().Unix(),
		}); err != nil {
			log.Printf("kafka publish for driver %d: %v", driverId, err)
		}

		c.JSON(200, gin.H{"message": "Location updated"})
	}
}

// SetAvailability flips whether the driver receives new ride requests
func SetAvailability(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")

		var input struct {
			IsAvailable *bool `json:"isAvailable" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := db.Model(&models.DriverLocation{}).
			Where("driver_id = ?", driverId).
			Update("is_available", *input.IsAvailable).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update availability"})
			return
		}

		if err := services.SetDriverAvailability(c.Request.Context(), driverId, *input.IsAvailable); err != nil {
			log.Printf("redis availability for driver %d: %v", driverId, err)
		}

		c.JSON(200, gin.H{"isAvailable": *input.IsAvailable})
	}
}
