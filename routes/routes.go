package routes

import (
	"Garito/controllers"
	"Garito/middleware"
	"Garito/services/ledger"
	"Garito/services/rooms"
	"Garito/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, directory *rooms.Directory, wallet ledger.Service) {
	// utils global
	router.Use(utils.ErrorHandler())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes group
	api := router.Group("/")

	api.GET("/ping", controllers.Ping)

	api.GET("/users/:username", controllers.GetUserPublicInfo(db))

	api.POST("/login", controllers.Login(db))

	api.POST("/signup", controllers.SignUp(db))

	authentication := api.Group("/auth")
	authentication.Use(middleware.AuthRequired)
	{
		authentication.DELETE("/logout", controllers.Logout)

		authentication.GET("/wallet", controllers.GetBalance(db))

		authentication.POST("/wallet/deposit", controllers.Deposit(db, wallet))

		authentication.GET("/rooms", controllers.ListRooms(db, directory))

		authentication.GET("/rooms/:room_id", controllers.GetRoomInfo(db, directory))

		authentication.GET("/history", controllers.GetMatchHistory(db))

		authentication.GET("/history/:room_id", controllers.GetMatchRecord(db))
	}
}
