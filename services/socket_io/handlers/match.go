package handlers

import (
	"log"

	"Garito/services/game"
	"Garito/services/rooms"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

func HandleSelectPlayer(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 2 {
			client.Emit("error", gin.H{"error": "Missing room ID or target player"})
			return
		}
		roomID, _ := args[0].(string)
		target, _ := args[1].(string)

		log.Printf("[SELECT] Admin %s selecting %s in room %s", username, target, roomID)
		if err := directory.Submit(roomID, rooms.SelectPlayer{Username: username, Target: target}); err != nil {
			emitEngineError(client, err)
		}
	}
}

func HandleReady(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 1 {
			client.Emit("error", gin.H{"error": "Missing room ID"})
			return
		}
		roomID, _ := args[0].(string)

		log.Printf("[READY] User %s ready in room %s", username, roomID)
		if err := directory.Submit(roomID, rooms.Ready{Username: username}); err != nil {
			emitEngineError(client, err)
		}
	}
}

func HandleGameAction(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 2 {
			client.Emit("error", gin.H{"error": "Missing room ID or action"})
			return
		}
		roomID, _ := args[0].(string)
		raw, ok := args[1].(map[string]interface{})
		if !ok {
			client.Emit("error", gin.H{"error": "Action must be an object"})
			return
		}
		actionType, _ := raw["type"].(string)
		data, _ := raw["data"].(map[string]interface{})

		action := game.Action{Type: actionType, Data: data}
		if err := directory.Submit(roomID, rooms.GameAction{Username: username, Action: action}); err != nil {
			emitEngineError(client, err)
		}
	}
}

func HandleRejoin(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 1 {
			client.Emit("error", gin.H{"error": "Missing room ID"})
			return
		}
		roomID, _ := args[0].(string)

		log.Printf("[REJOIN] User %s requesting replay for room %s", username, roomID)
		if err := directory.Submit(roomID, rooms.Rejoin{Username: username}); err != nil {
			emitEngineError(client, err)
		}
	}
}
