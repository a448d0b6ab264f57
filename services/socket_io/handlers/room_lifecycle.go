package handlers

import (
	"log"

	game_constants "Garito/constants/game"
	models "Garito/models/postgres"
	"Garito/services/rooms"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
	"gorm.io/gorm"
)

// emitEngineError surfaces an engine rejection to the issuing client only.
func emitEngineError(client *socket.Socket, err error) {
	if engineErr, ok := err.(*rooms.EngineError); ok {
		client.Emit("error", gin.H{"kind": string(engineErr.Kind), "error": engineErr.Message})
		return
	}
	client.Emit("error", gin.H{"error": err.Error()})
}

func HandleCreateRoom(directory *rooms.Directory, client *socket.Socket,
	db *gorm.DB, username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		log.Printf("[CREATE] HandleCreateRoom - User: %s, Socket ID: %s", username, client.Id())

		if len(args) < 1 {
			client.Emit("error", gin.H{"error": "Missing room parameters"})
			return
		}
		params, ok := args[0].(map[string]interface{})
		if !ok {
			client.Emit("error", gin.H{"error": "Room parameters must be an object"})
			return
		}

		name, _ := params["name"].(string)
		variant, _ := params["game_variant"].(string)
		password, _ := params["password"].(string)
		fee, _ := params["entry_fee"].(float64)
		maxPlayers, ok := params["max_players"].(float64)
		if !ok {
			maxPlayers = float64(game_constants.MinPlayersPerRoom)
		}
		allowSpectators := true
		if v, ok := params["allow_spectators"].(bool); ok {
			allowSpectators = v
		}

		room, err := directory.CreateRoom(rooms.CreateRoomParams{
			Name:            name,
			GameVariant:     variant,
			Admin:           username,
			FeeCents:        int64(fee),
			MaxPlayers:      int(maxPlayers),
			AllowSpectators: allowSpectators,
			Password:        password,
		})
		if err != nil {
			log.Printf("[CREATE-ERROR] User %s: %v", username, err)
			emitEngineError(client, err)
			return
		}

		// Durable row for listings that survive restarts
		row := models.GameRoom{
			ID:              room.ID,
			DisplayName:     room.DisplayName,
			CreatorUsername: username,
			GameVariant:     room.Variant,
			EntryFeeCents:   room.FeeCents,
			MaxPlayers:      room.MaxPlayers,
			AllowSpectators: room.AllowSpectators,
			PasswordHash:    "", // live engine owns the hash
		}
		if err := db.Create(&row).Error; err != nil {
			log.Printf("[CREATE-WARN] Could not persist room row for %s: %v", room.ID, err)
		}

		log.Printf("[CREATE-SUCCESS] Room %s (%s) created by %s", room.ID, room.DisplayName, username)
		client.Emit("room_created", gin.H{
			"room_id":      room.ID,
			"name":         room.DisplayName,
			"game_variant": room.Variant,
		})
	}
}

func HandleJoinRoom(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 1 {
			client.Emit("error", gin.H{"error": "Missing room ID"})
			return
		}
		roomID, _ := args[0].(string)
		password := ""
		if len(args) > 1 {
			password, _ = args[1].(string)
		}

		log.Printf("[JOIN] User %s joining room %s", username, roomID)
		if err := directory.Submit(roomID, rooms.JoinRoom{Username: username, Password: password}); err != nil {
			log.Printf("[JOIN-ERROR] User %s, room %s: %v", username, roomID, err)
			emitEngineError(client, err)
		}
	}
}

func HandleSpectateRoom(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 1 {
			client.Emit("error", gin.H{"error": "Missing room ID"})
			return
		}
		roomID, _ := args[0].(string)
		password := ""
		if len(args) > 1 {
			password, _ = args[1].(string)
		}

		log.Printf("[SPECTATE] User %s spectating room %s", username, roomID)
		if err := directory.Submit(roomID, rooms.SpectateRoom{Username: username, Password: password}); err != nil {
			log.Printf("[SPECTATE-ERROR] User %s, room %s: %v", username, roomID, err)
			emitEngineError(client, err)
		}
	}
}

func HandleKickFromLobby(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 2 {
			client.Emit("error", gin.H{"error": "Missing room ID or target player"})
			return
		}
		roomID, _ := args[0].(string)
		target, _ := args[1].(string)

		log.Printf("[KICK] Admin %s kicking %s from room %s", username, target, roomID)
		if err := directory.Submit(roomID, rooms.KickFromLobby{Username: username, Target: target}); err != nil {
			emitEngineError(client, err)
		}
	}
}

func HandleLeaveRoom(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 1 {
			client.Emit("error", gin.H{"error": "Missing room ID"})
			return
		}
		roomID, _ := args[0].(string)

		log.Printf("[LEAVE] User %s leaving room %s", username, roomID)
		if err := directory.Submit(roomID, rooms.LeaveRoom{Username: username}); err != nil {
			emitEngineError(client, err)
		}
	}
}
