package handlers

import (
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListNotifications returns the user's notifications, newest first
func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var notifications []models.Notification
		query := db.Where("user_id = ?", userId)
		if c.Query("unread") == "true" {
			query = query.Where("is_read = ?", false)
		}
		if err := query.Order("created_at DESC").Limit(100).
			Find(&notifications).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch notifications"})
			return
		}

		c.JSON(200, notifications)
	}
}

// MarkNotificationRead marks one notification as read
func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		notificationId := c.Param("id")

		now := time.Now().UTC()
		res := db.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", notificationId, userId).
			Updates(map[string]interface{}{"is_read": true, "read_at": now})
		if res.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update notification"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(404, gin.H{"error": "Notification not found"})
			return
		}

		c.JSON(200, gin.H{"message": "Notification marked as read"})
	}
}

// MarkAllNotificationsRead marks every unread notification as read
func MarkAllNotificationsRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		now := time.Now().UTC()
		if err := db.Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userId, false).
			Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update notifications"})
			return
		}

		c.JSON(200, gin.H{"message": "All notifications marked as read"})
	}
}
