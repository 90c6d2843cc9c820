package booking_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicbook/backend/clients"
	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/models/booking_models"
	"github.com/clinicbook/backend/models/room_models"
	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/models/summary_models"
	"github.com/clinicbook/backend/models/user_models"
	"github.com/clinicbook/backend/utils/apperrors"
	"github.com/clinicbook/backend/utils/pricing"
)

const (
	RedisCheckoutHoldPrefix = "checkout_hold:"
	RedisCheckoutHoldTTL    = 10 * time.Minute
)

// BookingService handles the checkout workflow: validate the selection,
// hold the slots, persist a pending booking, and open a charge intent at the
// payment processor. All collaborators are injected so tests run against
// fakes.
type BookingService struct {
	DB            *mongo.Database
	RedisClient   *redis.Client
	PaymentClient clients.RazorpayClientWrapper
}

// NewBookingService creates a new BookingService.
func NewBookingService(db *mongo.Database, rdb *redis.Client, pc clients.RazorpayClientWrapper) *BookingService {
	return &BookingService{
		DB:            db,
		RedisClient:   rdb,
		PaymentClient: pc,
	}
}

// RoomSelectionRequest is one room's requested slot and dates.
type RoomSelectionRequest struct {
	RoomID    string   `json:"room_id" binding:"required"`
	TimeSlot  string   `json:"time_slot" binding:"required"`
	Dates     []string `json:"dates" binding:"required"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

// CreateBookingRequest is the checkout payload.
type CreateBookingRequest struct {
	BookingType string                 `json:"booking_type" binding:"required"`
	Rooms       []RoomSelectionRequest `json:"rooms" binding:"required,min=1"`
}

func checkoutHoldKey(roomID, date, unit string) string {
	return fmt.Sprintf("%s%s:%s:%s", RedisCheckoutHoldPrefix, roomID, date, unit)
}

// holdSlots takes short-lived Redis holds on every (room, date, unit) so two
// users walking through checkout at the same moment see each other before
// either reaches the store-level claim. Best effort when Redis is absent.
func (s *BookingService) holdSlots(ctx context.Context, rooms []booking_models.BookedRoom, bookingID string) error {
	if s.RedisClient == nil {
		return nil
	}
	var taken []string
	for _, room := range rooms {
		for _, date := range room.Dates {
			for _, unit := range summary_models.UnitsFor(room.TimeSlot) {
				key := checkoutHoldKey(room.RoomID, date, unit)
				set, err := s.RedisClient.SetNX(ctx, key, bookingID, RedisCheckoutHoldTTL).Result()
				if err != nil {
					logger.WarnLogger.Warnf("Redis error holding %s: %v", key, err)
					continue
				}
				if !set {
					holder, _ := s.RedisClient.Get(ctx, key).Result()
					if holder != bookingID {
						s.releaseKeys(ctx, taken)
						return &apperrors.ConflictError{RoomID: room.RoomID, Date: date, TimeSlot: room.TimeSlot}
					}
				}
				taken = append(taken, key)
			}
		}
	}
	return nil
}

func (s *BookingService) releaseKeys(ctx context.Context, keys []string) {
	if s.RedisClient == nil || len(keys) == 0 {
		return
	}
	if err := s.RedisClient.Del(ctx, keys...).Err(); err != nil {
		logger.WarnLogger.Warnf("Failed to release checkout holds: %v", err)
	}
}

// releaseHolds frees every checkout hold a booking took.
func (s *BookingService) releaseHolds(ctx context.Context, rooms []booking_models.BookedRoom) {
	var keys []string
	for _, room := range rooms {
		for _, date := range room.Dates {
			for _, unit := range summary_models.UnitsFor(room.TimeSlot) {
				keys = append(keys, checkoutHoldKey(room.RoomID, date, unit))
			}
		}
	}
	s.releaseKeys(ctx, keys)
}

// buildRooms resolves the requested rooms against the store and rejects
// weekend and past dates at the calendar level, before any conflict check.
func (s *BookingService) buildRooms(ctx context.Context, reqRooms []RoomSelectionRequest) ([]booking_models.BookedRoom, []pricing.Selection, error) {
	today := time.Now().Format(booking_models.DateLayout)

	var rooms []booking_models.BookedRoom
	var selections []pricing.Selection
	for _, req := range reqRooms {
		room, err := room_models.GetRoomByID(ctx, s.DB, req.RoomID)
		if err != nil {
			return nil, nil, err
		}
		if !room.IsActive {
			return nil, nil, apperrors.NewValidation("room %s is not available for rental", room.Name)
		}

		for _, raw := range req.Dates {
			date, err := booking_models.NormalizeDate(raw)
			if err != nil {
				return nil, nil, err
			}
			if date < today {
				return nil, nil, apperrors.NewValidation("date %s is in the past", date)
			}
			if isWeekend(date) {
				return nil, nil, apperrors.NewValidation("date %s falls on a weekend", date)
			}
		}

		rooms = append(rooms, booking_models.BookedRoom{
			RoomID:    room.ID,
			RoomName:  room.Name,
			TimeSlot:  req.TimeSlot,
			Dates:     req.Dates,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		})
		selections = append(selections, pricing.Selection{
			RoomID:   room.ID,
			TimeSlot: req.TimeSlot,
			Dates:    req.Dates,
			Rates: pricing.RoomRates{
				FullDayPrice:     room.FullDayPrice,
				HalfDayPrice:     room.HalfDayPrice,
				MonthlyFullPrice: room.MonthlyFullPrice,
				MonthlyHalfPrice: room.MonthlyHalfPrice,
			},
		})
	}
	return rooms, selections, nil
}

// CreateBooking runs the whole checkout: price server-side, hold, persist
// pending, claim the summary units atomically, then open the processor
// order. The returned order id is what the frontend hands to the hosted
// checkout.
func (s *BookingService) CreateBooking(ctx context.Context, userID string, req *CreateBookingRequest) (*booking_models.Booking, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	user, err := user_models.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		return nil, "", err
	}

	rooms, selections, err := s.buildRooms(ctx, req.Rooms)
	if err != nil {
		return nil, "", err
	}

	// The quote is always recomputed here; the client's own quote is never
	// trusted for the charge amount.
	breakdown, err := pricing.Quote(selections, req.BookingType, user.IsMembershipActive)
	if err != nil {
		return nil, "", err
	}

	booking, err := booking_models.NewBooking(userID, req.BookingType, rooms, breakdown.Total)
	if err != nil {
		return nil, "", err
	}

	// Availability pre-check against other active bookings.
	for _, room := range booking.Rooms {
		conflicts, err := booking_models.FindConflicts(ctx, s.DB, booking.ID, room.RoomID, room.TimeSlot, room.Dates)
		if err != nil {
			return nil, "", err
		}
		if len(conflicts) > 0 {
			return nil, "", &apperrors.ConflictError{
				RoomID:   room.RoomID,
				RoomName: room.RoomName,
				Date:     conflicts[0],
				TimeSlot: room.TimeSlot,
			}
		}
	}

	if err := s.holdSlots(ctx, booking.Rooms, booking.ID); err != nil {
		return nil, "", err
	}

	// Store-level atomic claim; the losing concurrent writer fails here even
	// if both passed the pre-check above.
	for _, room := range booking.Rooms {
		if err := summary_models.ClaimDates(ctx, s.DB, room.RoomID, room.TimeSlot, room.Dates, booking.ID); err != nil {
			s.releaseHolds(ctx, booking.Rooms)
			if apperrors.IsConflict(err) {
				var ce *apperrors.ConflictError
				errors.As(err, &ce)
				ce.RoomName = room.RoomName
			}
			return nil, "", err
		}
	}

	created, err := booking_models.CreateBooking(ctx, s.DB, booking)
	if err != nil {
		if releaseErr := summary_models.ReleaseClaims(ctx, s.DB, booking.ID); releaseErr != nil {
			logger.ErrorLogger.Errorf("Failed to release claims for booking %s: %v", booking.ID, releaseErr)
		}
		s.releaseHolds(ctx, booking.Rooms)
		return nil, "", err
	}

	orderData := map[string]interface{}{
		"amount":   created.TotalAmount,
		"currency": shared_models.Currency,
		"receipt":  created.ID,
		"notes": map[string]interface{}{
			"booking_id": created.ID,
			"user_id":    created.UserID,
		},
	}
	order, err := s.PaymentClient.CreateOrder(orderData)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to create payment order for booking %s: %v", created.ID, err)
		s.abortCheckout(ctx, created, "payment order creation failed")
		return nil, "", &apperrors.UpstreamError{Service: "payment processor", Err: err}
	}

	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		logger.ErrorLogger.Errorf("Payment order response missing id for booking %s", created.ID)
		s.abortCheckout(ctx, created, "invalid payment order response")
		return nil, "", &apperrors.UpstreamError{Service: "payment processor", Err: fmt.Errorf("order response missing id")}
	}

	if err := booking_models.SetPaymentIntentID(ctx, s.DB, created.ID, orderID); err != nil {
		s.abortCheckout(ctx, created, "failed to attach payment intent")
		return nil, "", err
	}
	created.PaymentIntentID = orderID

	logger.InfoLogger.Infof("Booking %s created with payment intent %s (total %s)",
		created.ID, orderID, pricing.FormatCents(created.TotalAmount))
	return created, orderID, nil
}

// abortCheckout marks a just-created booking failed and frees its claims and
// holds after a checkout-time error.
func (s *BookingService) abortCheckout(ctx context.Context, booking *booking_models.Booking, reason string) {
	if err := booking_models.MarkFailedByID(ctx, s.DB, booking.ID, booking_models.PaymentError{Message: reason}); err != nil {
		logger.ErrorLogger.Errorf("Failed to mark booking %s failed: %v", booking.ID, err)
	}
	if err := summary_models.ReleaseClaims(ctx, s.DB, booking.ID); err != nil {
		logger.ErrorLogger.Errorf("Failed to release claims for booking %s: %v", booking.ID, err)
	}
	s.releaseHolds(ctx, booking.Rooms)
}

func respondError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.ErrorLogger.Errorf("Unexpected error: %v", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func userIDFrom(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	return id, true
}

// Create handles POST /bookings.
func (s *BookingService) Create(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	booking, orderID, err := s.CreateBooking(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking":          booking,
		"order_id":         orderID,
		"razorpay_key_id":  os.Getenv("RAZORPAY_KEY_ID"),
		"currency":         shared_models.Currency,
		"amount":           booking.TotalAmount,
		"amount_formatted": pricing.FormatCents(booking.TotalAmount),
	})
}

// Get handles GET /bookings/:id.
func (s *BookingService) Get(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	booking, err := booking_models.GetBookingByID(c.Request.Context(), s.DB, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if booking.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "booking does not belong to this user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ListMine handles GET /bookings.
func (s *BookingService) ListMine(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	bookings, err := booking_models.ListByUser(c.Request.Context(), s.DB, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
