package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicbook/backend/controllers/room_controller"
)

func RegisterRoomRoutes(router *gin.Engine, rc *room_controller.RoomController) {
	router.GET("/rooms", rc.List)
	router.GET("/rooms/:id", rc.Get)
}
