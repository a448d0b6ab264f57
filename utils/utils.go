package utils

import (
	"fmt"

	"Garito/models/postgres"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorHandler handles global errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
	}
}

// CheckRoomExists looks up the durable row of a room
func CheckRoomExists(db *gorm.DB, roomID string) (*postgres.GameRoom, error) {
	var room postgres.GameRoom
	result := db.Where("id = ?", roomID).First(&room)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("room not found")
		}
		return nil, result.Error
	}

	return &room, nil
}

// Returns the icon of the user
func UserIcon(db *gorm.DB, username string) int {
	var icon int
	err := db.Model(&postgres.User{}).
		Select("user_icon").
		Where("profile_username = ?", username).
		Find(&icon).Error
	if err != nil {
		return 1
	}

	return icon
}
