package handlers

import (
	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetProfile returns the authenticated user's profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		c.JSON(200, gin.H{
			"id":            user.ID,
			"username":      user.Username,
			"email":         user.Email,
			"phoneNumber":   user.PhoneNumber,
			"userType":      user.UserType,
			"photoUrl":      user.PhotoURL,
			"vehicleType":   user.VehicleType,
			"vehicleNumber": user.VehicleNumber,
			"rating":        user.Rating,
			"totalTrips":    user.TotalTrips,
		})
	}
}

// UpdateProfile updates the editable profile fields
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Username      string `json:"username"`
			Phone         string `json:"phone"`
			VehicleType   string `json:"vehicleType"`
			VehicleNumber string `json:"vehicleNumber"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		updates := map[string]interface{}{}
		if input.Username != "" {
			updates["username"] = input.Username
		}
		if input.Phone != "" {
			updates["phone_number"] = input.Phone
		}
		if user.UserType == string(models.UserTypeDriver) {
			if input.VehicleType != "" {
				if !models.ValidVehicleType(input.VehicleType) {
					c.JSON(400, gin.H{"error": "Invalid vehicle type"})
					return
				}
				updates["vehicle_type"] = input.VehicleType
			}
			if input.VehicleNumber != "" {
				updates["vehicle_number"] = input.VehicleNumber
			}
		}

		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to update profile"})
				return
			}
		}

		c.JSON(200, gin.H{"message": "Profile updated"})
	}
}

// UploadProfilePhoto stores the uploaded image and saves its URL
func UploadProfilePhoto(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"error": "No photo provided"})
			return
		}

		url, err := services.UploadImage(file, "profiles")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload photo: " + err.Error()})
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", userId).
			Update("photo_url", url).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save photo"})
			return
		}

		c.JSON(200, gin.H{"photoUrl": url})
	}
}
