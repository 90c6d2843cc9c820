package room_controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/models/room_models"
	"github.com/clinicbook/backend/utils/apperrors"
)

// RoomController serves the public room catalog.
type RoomController struct {
	DB *mongo.Database
}

// NewRoomController creates a new RoomController.
func NewRoomController(db *mongo.Database) *RoomController {
	return &RoomController{DB: db}
}

// List handles GET /rooms.
func (rc *RoomController) List(c *gin.Context) {
	rooms, err := room_models.ListRooms(c.Request.Context(), rc.DB)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list rooms: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// Get handles GET /rooms/:id.
func (rc *RoomController) Get(c *gin.Context) {
	room, err := room_models.GetRoomByID(c.Request.Context(), rc.DB, c.Param("id"))
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}
