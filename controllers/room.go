package controllers

import (
	"net/http"

	"Garito/services/rooms"
	"Garito/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary List live rooms
// @Description Returns the directory's listing projection. Passwords and live game state are never exposed; can_rejoin is computed for the caller.
// @Tags rooms
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param variant query string false "Filter by game variant"
// @Success 200 {array} object{room_id=string,name=string,status=string,can_rejoin=boolean}
// @Failure 401 {object} object{error=string}
// @Router /auth/rooms [get]
// @Security ApiKeyAuth
func ListRooms(db *gorm.DB, directory *rooms.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticatedUser(c, db)
		if !ok {
			return
		}

		summaries := directory.List(c.Query("variant"))
		out := make([]gin.H, 0, len(summaries))
		for _, s := range summaries {
			out = append(out, gin.H{
				"room_id":               s.RoomID,
				"name":                  s.Name,
				"status":                s.Status,
				"game_variant":          s.GameVariant,
				"player_count":          s.PlayerCount,
				"max_players":           s.MaxPlayers,
				"spectator_count":       s.SpectatorCount,
				"allow_spectators":      s.AllowSpectators,
				"is_password_protected": s.PasswordProtected,
				"entry_fee_cents":       s.EntryFeeCents,
				"can_rejoin":            s.CanRejoin(user.ProfileUsername),
			})
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary Get info of one room
// @Description Returns the live summary of a room, falling back to the durable row once the room has left the directory.
// @Tags rooms
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param room_id path string true "Room ID"
// @Success 200 {object} object{room_id=string,name=string,status=string}
// @Failure 404 {object} object{error=string}
// @Router /auth/rooms/{room_id} [get]
// @Security ApiKeyAuth
func GetRoomInfo(db *gorm.DB, directory *rooms.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticatedUser(c, db)
		if !ok {
			return
		}
		roomID := c.Param("room_id")

		if room, live := directory.Get(roomID); live {
			s := room.Summary()
			c.JSON(http.StatusOK, gin.H{
				"room_id":               s.RoomID,
				"name":                  s.Name,
				"status":                s.Status,
				"game_variant":          s.GameVariant,
				"player_count":          s.PlayerCount,
				"max_players":           s.MaxPlayers,
				"spectator_count":       s.SpectatorCount,
				"allow_spectators":      s.AllowSpectators,
				"is_password_protected": s.PasswordProtected,
				"entry_fee_cents":       s.EntryFeeCents,
				"can_rejoin":            s.CanRejoin(user.ProfileUsername),
			})
			return
		}

		row, err := utils.CheckRoomExists(db, roomID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"room_id":         row.ID,
			"name":            row.DisplayName,
			"status":          row.Status,
			"game_variant":    row.GameVariant,
			"max_players":     row.MaxPlayers,
			"entry_fee_cents": row.EntryFeeCents,
			"winner":          row.WinnerUsername,
			"prize_cents":     row.PrizeCents,
			"can_rejoin":      false,
		})
	}
}
