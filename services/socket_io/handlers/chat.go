package handlers

import (
	"log"
	"strings"

	"Garito/services/rooms"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

func HandleChatSend(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 3 {
			client.Emit("error", gin.H{"error": "Missing room ID, channel or message"})
			return
		}
		roomID, _ := args[0].(string)
		channel, _ := args[1].(string)
		message, _ := args[2].(string)

		message = strings.TrimSpace(message)
		if message == "" {
			client.Emit("error", gin.H{"error": "Empty message"})
			return
		}

		cmd := rooms.ChatSend{
			Username: username,
			Channel:  rooms.Channel(channel),
			Message:  message,
		}
		if err := directory.Submit(roomID, cmd); err != nil {
			log.Printf("[CHAT-ERROR] User %s, room %s: %v", username, roomID, err)
			emitEngineError(client, err)
		}
	}
}

func HandleVoteKick(directory *rooms.Directory, client *socket.Socket,
	username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 2 {
			client.Emit("error", gin.H{"error": "Missing room ID or target player"})
			return
		}
		roomID, _ := args[0].(string)
		target, _ := args[1].(string)

		log.Printf("[KICK] User %s voting to kick %s in room %s", username, target, roomID)
		if err := directory.Submit(roomID, rooms.VoteKick{Username: username, Target: target}); err != nil {
			emitEngineError(client, err)
		}
	}
}
