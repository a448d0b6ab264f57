package socket_io

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Garito/services/redis"
	"Garito/services/rooms"
	"Garito/services/socket_io/handlers"
	socketio_types "Garito/services/socket_io/types"
	socketio_utils "Garito/services/socket_io/utils"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
	"gorm.io/gorm"
)

type MySocketServer socketio_types.SocketServer

// Start mounts the socket.io endpoint on the gin router and binds every
// room event to its engine command handler. Sockets that fail the JWT
// handshake never reach the registry.
func (sio *MySocketServer) Start(router *gin.Engine, db *gorm.DB,
	redisClient *redis.RedisClient, directory *rooms.Directory) {
	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	// NOTE: higher ping interval and timeout to 1) reduce network load and 2) support slower networks
	c.SetPingInterval(5 * time.Second)
	c.SetPingTimeout(3 * time.Second)
	c.SetMaxHttpBufferSize(1000000)
	c.SetConnectTimeout(10 * time.Second)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	sio.Sio_server = socket.NewServer(nil, nil)
	sio.Sio_server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		// Check if the client is authenticated
		success, username, _ := socketio_utils.VerifyUserConnection(client, db)
		if !success {
			return
		}

		handlers.HandleConnect(sio.Registry, redisClient, client, username)

		// Room lifecycle
		client.On("create_room", handlers.HandleCreateRoom(directory, client, db, username))
		client.On("join_room", handlers.HandleJoinRoom(directory, client, username))
		client.On("spectate_room", handlers.HandleSpectateRoom(directory, client, username))
		client.On("kick_from_lobby", handlers.HandleKickFromLobby(directory, client, username))
		client.On("leave_room", handlers.HandleLeaveRoom(directory, client, username))

		// Match flow
		client.On("select_player", handlers.HandleSelectPlayer(directory, client, username))
		client.On("ready", handlers.HandleReady(directory, client, username))
		client.On("game_action", handlers.HandleGameAction(directory, client, username))
		client.On("rejoin", handlers.HandleRejoin(directory, client, username))

		// Chat and consensus
		client.On("chat", handlers.HandleChatSend(directory, client, username))
		client.On("vote_kick", handlers.HandleVoteKick(directory, client, username))

		// NOTE: last session gone triggers the disconnect grace in the room
		client.On("disconnecting", handlers.HandleDisconnecting(sio.Registry, redisClient, client, username))
	})

	router.POST("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))
	router.GET("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))

	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				sio.Sio_server.Close(nil)
				os.Exit(0)
			}
		}
	}()

	fmt.Println("Socket server started")
}
