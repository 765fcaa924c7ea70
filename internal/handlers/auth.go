package handlers

import (
	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Username      string `json:"username" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	Phone         string `json:"phone"`
	UserType      string `json:"userType" binding:"required,oneof=rider driver"`
	VehicleType   string `json:"vehicleType"`
	VehicleNumber string `json:"vehicleNumber"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.UserType == string(models.UserTypeDriver) {
			if !models.ValidVehicleType(input.VehicleType) {
				c.JSON(400, gin.H{"error": "Drivers must register a vehicle type: bike, auto or car"})
				return
			}
			if input.VehicleNumber == "" {
				c.JSON(400, gin.H{"error": "Drivers must register a vehicle number"})
				return
			}
		}

		user := models.User{
			Username:      input.Username,
			Email:         input.Email,
			Password:      input.Password,
			PhoneNumber:   input.Phone,
			UserType:      input.UserType,
			VehicleType:   input.VehicleType,
			VehicleNumber: input.VehicleNumber,
		}
		if err := user.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if result := db.Create(&user); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to create user: " + result.Error.Error()})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(201, gin.H{
			"token": token,
			"user": gin.H{
				"id":       user.ID,
				"email":    user.Email,
				"username": user.Username,
				"userType": user.UserType,
			},
		})
	}
}

func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if result := db.Where("email = ?", input.Email).First(&user); result.Error != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user": gin.H{
				"id":          user.ID,
				"email":       user.Email,
				"username":    user.Username,
				"userType":    user.UserType,
				"photoUrl":    user.PhotoURL,
				"vehicleType": user.VehicleType,
				"rating":      user.Rating,
			},
		})
	}
}
