package booking_controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinicbook/backend/models/booking_models"
	"github.com/clinicbook/backend/models/room_models"
	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/models/summary_models"
	"github.com/clinicbook/backend/models/user_models"
	"github.com/clinicbook/backend/utils/apperrors"
	"github.com/clinicbook/backend/utils/pricing"
)

// Day statuses in the availability grid.
const (
	DayStatusOpen    = "open"
	DayStatusBooked  = "booked"
	DayStatusWeekend = "weekend"
	DayStatusPast    = "past"
)

// DayAvailability is one calendar cell: the date, the time-slots still
// reservable on it, and why it is closed when none are.
type DayAvailability struct {
	Date      string   `json:"date"`
	TimeSlots []string `json:"time_slots"`
	Status    string   `json:"status"`
}

func isWeekend(date string) bool {
	t, err := time.Parse(booking_models.DateLayout, date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func availableSlots(summary *summary_models.BookingSummary) []string {
	var slots []string
	morningFree := summary_models.IsDateFree(summary, shared_models.TimeSlotMorning)
	eveningFree := summary_models.IsDateFree(summary, shared_models.TimeSlotEvening)
	if morningFree && eveningFree {
		slots = append(slots, shared_models.TimeSlotFull)
	}
	if morningFree {
		slots = append(slots, shared_models.TimeSlotMorning)
	}
	if eveningFree {
		slots = append(slots, shared_models.TimeSlotEvening)
	}
	return slots
}

// MonthAvailability builds the calendar grid for one room and month. The
// summaries are read fresh on every call; nothing is cached across requests.
func (s *BookingService) MonthAvailability(ctx context.Context, roomID string, month time.Month, year int) ([]DayAvailability, error) {
	if _, err := room_models.GetRoomByID(ctx, s.DB, roomID); err != nil {
		return nil, err
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	fromDate := first.Format(booking_models.DateLayout)
	toDate := last.Format(booking_models.DateLayout)

	summaries, err := summary_models.ListForRoomRange(ctx, s.DB, roomID, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	today := time.Now().Format(booking_models.DateLayout)
	days := make([]DayAvailability, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(booking_models.DateLayout)
		day := DayAvailability{Date: date}

		switch {
		case date < today:
			day.Status = DayStatusPast
		case isWeekend(date):
			day.Status = DayStatusWeekend
		default:
			var summary *summary_models.BookingSummary
			if sum, ok := summaries[date]; ok {
				summary = &sum
			}
			day.TimeSlots = availableSlots(summary)
			if len(day.TimeSlots) == 0 {
				day.Status = DayStatusBooked
			} else {
				day.Status = DayStatusOpen
			}
		}
		days = append(days, day)
	}
	return days, nil
}

// FilterConflictingDates re-evaluates previously chosen dates under a new
// time-slot. Dates that conflict under the new slot are dropped and reported
// back, never silently kept.
func (s *BookingService) FilterConflictingDates(ctx context.Context, roomID, newSlot string, dates []string) (kept, dropped []string, err error) {
	if !shared_models.IsValidTimeSlot(newSlot) {
		return nil, nil, apperrors.NewValidation("unknown time slot %q", newSlot)
	}
	if len(dates) == 0 {
		return nil, nil, nil
	}

	normalized := make([]string, len(dates))
	for i, raw := range dates {
		normalized[i], err = booking_models.NormalizeDate(raw)
		if err != nil {
			return nil, nil, err
		}
	}

	fromDate, toDate := normalized[0], normalized[0]
	for _, d := range normalized {
		if d < fromDate {
			fromDate = d
		}
		if d > toDate {
			toDate = d
		}
	}

	summaries, err := summary_models.ListForRoomRange(ctx, s.DB, roomID, fromDate, toDate)
	if err != nil {
		return nil, nil, err
	}

	for _, d := range normalized {
		var summary *summary_models.BookingSummary
		if sum, ok := summaries[d]; ok {
			summary = &sum
		}
		if summary_models.IsDateFree(summary, newSlot) {
			kept = append(kept, d)
		} else {
			dropped = append(dropped, d)
		}
	}
	return kept, dropped, nil
}

// GenerateMonthlyDates picks the next n business days for a monthly booking,
// skipping weekends and dates already booked for the requested slot.
func (s *BookingService) GenerateMonthlyDates(ctx context.Context, roomID, timeSlot string, start time.Time, n int) ([]string, error) {
	if !shared_models.IsValidTimeSlot(timeSlot) {
		return nil, apperrors.NewValidation("unknown time slot %q", timeSlot)
	}

	fromDate := start.Format(booking_models.DateLayout)
	// Generous window: n business days never span more than ~3x n calendar days.
	toDate := start.AddDate(0, 0, n*3).Format(booking_models.DateLayout)
	summaries, err := summary_models.ListForRoomRange(ctx, s.DB, roomID, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	var dates []string
	for d := start; len(dates) < n; d = d.AddDate(0, 0, 1) {
		date := d.Format(booking_models.DateLayout)
		if date > toDate {
			break
		}
		if isWeekend(date) {
			continue
		}
		var summary *summary_models.BookingSummary
		if sum, ok := summaries[date]; ok {
			summary = &sum
		}
		if !summary_models.IsDateFree(summary, timeSlot) {
			continue
		}
		dates = append(dates, date)
	}
	return dates, nil
}

// Availability handles GET /availability?room_id=&month=&year=.
func (s *BookingService) Availability(c *gin.Context) {
	roomID := c.Query("room_id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id is required"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1-12"})
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year is invalid"})
		return
	}

	days, err := s.MonthAvailability(c.Request.Context(), roomID, time.Month(month), year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "days": days})
}

// ReselectRequest asks which dates survive a time-slot change.
type ReselectRequest struct {
	RoomID   string   `json:"room_id" binding:"required"`
	TimeSlot string   `json:"time_slot" binding:"required"`
	Dates    []string `json:"dates" binding:"required"`
}

// Reselect handles POST /availability/reselect.
func (s *BookingService) Reselect(c *gin.Context) {
	var req ReselectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	kept, dropped, err := s.FilterConflictingDates(c.Request.Context(), req.RoomID, req.TimeSlot, req.Dates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kept": kept, "dropped": dropped})
}

// MonthlyDates handles GET /availability/monthly-dates.
func (s *BookingService) MonthlyDates(c *gin.Context) {
	roomID := c.Query("room_id")
	timeSlot := c.DefaultQuery("time_slot", shared_models.TimeSlotFull)
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id is required"})
		return
	}

	start := time.Now().AddDate(0, 0, 1)
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(booking_models.DateLayout, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		start = parsed
	}

	dates, err := s.GenerateMonthlyDates(c.Request.Context(), roomID, timeSlot, start, 30)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "time_slot": timeSlot, "dates": dates})
}

// QuoteRequest is the pricing preview payload.
type QuoteRequest struct {
	BookingType string                 `json:"booking_type" binding:"required"`
	Rooms       []RoomSelectionRequest `json:"rooms" binding:"required,min=1"`
}

// Quote handles POST /quote. The preview uses the caller's stored membership
// flag; the charge amount is recomputed again at checkout regardless.
func (s *BookingService) Quote(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	user, err := user_models.GetUserByID(c.Request.Context(), s.DB, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	_, selections, err := s.buildRooms(c.Request.Context(), req.Rooms)
	if err != nil {
		respondError(c, err)
		return
	}

	breakdown, err := pricing.Quote(selections, req.BookingType, user.IsMembershipActive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"breakdown": breakdown,
		"formatted": gin.H{
			"subtotal":         pricing.FormatCents(breakdown.Subtotal),
			"tax":              pricing.FormatCents(breakdown.Tax),
			"security_deposit": pricing.FormatCents(breakdown.SecurityDeposit),
			"total":            pricing.FormatCents(breakdown.Total),
		},
	})
}
