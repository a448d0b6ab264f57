package handlers

import (
	"log"
	"time"

	redis_models "Garito/models/redis"
	"Garito/services/redis"
	"Garito/services/rooms"
	socketio_types "Garito/services/socket_io/types"

	"github.com/zishang520/socket.io/v2/socket"
)

// HandleConnect registers the authenticated socket as a live session and
// records presence. Must run before any room event handler is bound.
func HandleConnect(registry *rooms.Registry, redisClient *redis.RedisClient,
	client *socket.Socket, username string) {
	registry.Register(username, &socketio_types.SocketSession{Client: client})

	presence := &redis_models.PlayerPresence{
		Username: username,
		Status:   redis_models.StatusOnline,
		LastPing: time.Now().Unix(),
		SocketID: string(client.Id()),
	}
	if err := redisClient.SavePlayerPresence(presence); err != nil {
		log.Printf("[CONNECT-WARN] Could not save presence for %s: %v", username, err)
	}

	log.Printf("[CONNECT] User %s connected, socket %s", username, client.Id())
}

// HandleDisconnecting drops the session from the registry; if it was the
// identity's last session the registry's watcher starts the disconnect
// grace inside whichever room holds the player.
func HandleDisconnecting(registry *rooms.Registry, redisClient *redis.RedisClient,
	client *socket.Socket, username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		log.Printf("[DISCONNECT] User %s, socket %s", username, client.Id())

		registry.Unregister(username, string(client.Id()))

		if !registry.IsOnline(username) {
			presence := &redis_models.PlayerPresence{
				Username: username,
				Status:   redis_models.StatusOffline,
				LastPing: time.Now().Unix(),
			}
			if err := redisClient.SavePlayerPresence(presence); err != nil {
				log.Printf("[DISCONNECT-WARN] Could not save presence for %s: %v", username, err)
			}
		}
	}
}
