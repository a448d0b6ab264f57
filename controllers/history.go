package controllers

import (
	"net/http"

	models "Garito/models/postgres"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary Get the authenticated user's match history
// @Description Returns the rooms the user played in, newest first, with the room's final outcome.
// @Tags history
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {array} object{room_id=string,game_variant=string,winner=string,prize_cents=integer}
// @Failure 401 {object} object{error=string}
// @Router /auth/history [get]
// @Security ApiKeyAuth
func GetMatchHistory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticatedUser(c, db)
		if !ok {
			return
		}

		var participations []models.RoomPlayer
		if err := db.Where("username = ?", user.ProfileUsername).Find(&participations).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching match history"})
			return
		}

		roomIDs := make([]string, 0, len(participations))
		byRoom := make(map[string]models.RoomPlayer, len(participations))
		for _, p := range participations {
			roomIDs = append(roomIDs, p.RoomID)
			byRoom[p.RoomID] = p
		}

		var histories []models.MatchHistory
		if len(roomIDs) > 0 {
			if err := db.Where("room_id IN ?", roomIDs).
				Order("finished_at DESC").Find(&histories).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching match records"})
				return
			}
		}

		out := make([]gin.H, 0, len(histories))
		for _, h := range histories {
			p := byRoom[h.RoomID]
			out = append(out, gin.H{
				"room_id":      h.RoomID,
				"game_variant": h.GameVariant,
				"winner":       h.Winner,
				"prize_cents":  h.PrizeCents,
				"finished_at":  h.FinishedAt,
				"final_score":  p.FinalScore,
				"won":          p.Winner,
				"auto_played":  p.AutoPlayed,
				"record":       h.Record,
			})
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary Get one match record
// @Description Returns the full record of a finished match.
// @Tags history
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param room_id path string true "Room ID"
// @Success 200 {object} object{room_id=string,record=object}
// @Failure 404 {object} object{error=string}
// @Router /auth/history/{room_id} [get]
// @Security ApiKeyAuth
func GetMatchRecord(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authenticatedUser(c, db); !ok {
			return
		}
		roomID := c.Param("room_id")

		var history models.MatchHistory
		if err := db.Where("room_id = ?", roomID).First(&history).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match record not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"room_id":      history.RoomID,
			"game_variant": history.GameVariant,
			"winner":       history.Winner,
			"prize_cents":  history.PrizeCents,
			"finished_at":  history.FinishedAt,
			"record":       history.Record,
		})
	}
}
