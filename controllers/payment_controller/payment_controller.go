package payment_controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicbook/backend/clients"
	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/models/booking_models"
	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/models/summary_models"
	"github.com/clinicbook/backend/models/user_models"
	"github.com/clinicbook/backend/utils/apperrors"
	"github.com/clinicbook/backend/utils/mail"
	"github.com/clinicbook/backend/utils/pricing"
)

// Processor payment statuses after normalization.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// PaymentOutcome is the normalized report of a payment's terminal state.
// Both entry paths (webhook and client-initiated verify) reduce the
// processor payload to this shape before reconciliation, so the engine has a
// single behavior regardless of how the outcome arrived.
type PaymentOutcome struct {
	PaymentIntentID string
	Status          string
	Amount          int64
	Currency        string
	Method          string
	Error           *booking_models.PaymentError
}

// reconciliationStore is the persistence surface Reconcile depends on.
// Production wires the mongo-backed implementation; tests substitute an
// in-memory fake, the same way RazorpayClientWrapper fakes the processor.
type reconciliationStore interface {
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*booking_models.Booking, error)
	ConfirmBooking(ctx context.Context, paymentIntentID string, rooms []booking_models.BookedRoom, details booking_models.PaymentDetails) (*booking_models.Booking, bool, error)
	FailBooking(ctx context.Context, paymentIntentID string, rooms []booking_models.BookedRoom, perr booking_models.PaymentError) (*booking_models.Booking, bool, error)
	ReleaseClaims(ctx context.Context, bookingID string) error
	ActivateMembership(ctx context.Context, userID string) (bool, error)
	GetUserByID(ctx context.Context, userID string) (*user_models.User, error)
}

type mongoStore struct {
	db *mongo.Database
}

func (m *mongoStore) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*booking_models.Booking, error) {
	return booking_models.FindByPaymentIntentID(ctx, m.db, paymentIntentID)
}

func (m *mongoStore) ConfirmBooking(ctx context.Context, paymentIntentID string, rooms []booking_models.BookedRoom, details booking_models.PaymentDetails) (*booking_models.Booking, bool, error) {
	return booking_models.ConfirmBooking(ctx, m.db, paymentIntentID, rooms, details)
}

func (m *mongoStore) FailBooking(ctx context.Context, paymentIntentID string, rooms []booking_models.BookedRoom, perr booking_models.PaymentError) (*booking_models.Booking, bool, error) {
	return booking_models.FailBooking(ctx, m.db, paymentIntentID, rooms, perr)
}

func (m *mongoStore) ReleaseClaims(ctx context.Context, bookingID string) error {
	return summary_models.ReleaseClaims(ctx, m.db, bookingID)
}

func (m *mongoStore) ActivateMembership(ctx context.Context, userID string) (bool, error) {
	return user_models.ActivateMembership(ctx, m.db, userID)
}

func (m *mongoStore) GetUserByID(ctx context.Context, userID string) (*user_models.User, error) {
	return user_models.GetUserByID(ctx, m.db, userID)
}

// ReconciliationService merges asynchronous payment outcomes into booking
// and membership state exactly once.
type ReconciliationService struct {
	Store         reconciliationStore
	PaymentClient clients.RazorpayClientWrapper
	Mailer        mail.Mailer
	WebhookSecret string
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(db *mongo.Database, pc clients.RazorpayClientWrapper, mailer mail.Mailer) *ReconciliationService {
	return &ReconciliationService{
		Store:         &mongoStore{db: db},
		PaymentClient: pc,
		Mailer:        mailer,
		WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
	}
}

// Reconcile is the single canonical reconciliation path. The same outcome
// applied twice produces the same final state, and the confirmation email is
// dispatched by at most one caller: the one whose conditional update actually
// performed the pending→confirmed transition.
func (s *ReconciliationService) Reconcile(ctx context.Context, outcome PaymentOutcome) (*booking_models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if outcome.PaymentIntentID == "" {
		return nil, apperrors.NewValidation("payment intent id is required")
	}

	booking, err := s.Store.FindByPaymentIntentID(ctx, outcome.PaymentIntentID)
	if err != nil {
		return nil, err
	}

	// Upstream callers are not trusted to have normalized dates; re-run the
	// canonical pass here. A malformed payload fails the whole reconciliation
	// before anything is written.
	rooms, err := booking_models.NormalizeRoomDates(booking.Rooms)
	if err != nil {
		return nil, err
	}

	if outcome.Status != OutcomeSucceeded {
		return s.reconcileFailure(ctx, outcome, rooms)
	}

	if outcome.Currency != "" && outcome.Currency != shared_models.Currency {
		return nil, apperrors.NewValidation("unexpected currency %q on payment %s", outcome.Currency, outcome.PaymentIntentID)
	}
	if outcome.Amount != 0 && outcome.Amount != booking.TotalAmount {
		return nil, apperrors.NewValidation("payment amount %d does not match booking total %d", outcome.Amount, booking.TotalAmount)
	}

	details := booking_models.PaymentDetails{
		Amount:   booking.TotalAmount,
		Currency: shared_models.Currency,
		Method:   outcome.Method,
		// First-success semantics: keep an existing confirmation timestamp.
		ConfirmedAt: booking.PaymentDetails.ConfirmedAt,
	}

	updated, didTransition, err := s.Store.ConfirmBooking(ctx, outcome.PaymentIntentID, rooms, details)
	if err != nil {
		return nil, err
	}

	// Membership activation runs on every success pass, not only the
	// transitioning one: the store-level update is conditional, so a
	// transient failure here is repaired by the next duplicate notification
	// instead of being lost once the booking has left pending.
	if updated.Status == shared_models.BookingStatusConfirmed {
		activatedNow, err := s.Store.ActivateMembership(ctx, updated.UserID)
		if err != nil {
			return nil, fmt.Errorf("booking %s confirmed but membership update failed: %w", updated.ID, err)
		}
		if activatedNow {
			logger.InfoLogger.Infof("First successful payment for user %s; membership activated", updated.UserID)
		}
	}

	if !didTransition {
		logger.InfoLogger.Infof("Payment %s already reconciled (booking %s status %s); skipping notification",
			outcome.PaymentIntentID, updated.ID, updated.Status)
		return updated, nil
	}

	s.dispatchConfirmation(ctx, updated)
	return updated, nil
}

func (s *ReconciliationService) reconcileFailure(ctx context.Context, outcome PaymentOutcome, rooms []booking_models.BookedRoom) (*booking_models.Booking, error) {
	perr := booking_models.PaymentError{Message: "payment was not completed"}
	if outcome.Error != nil {
		perr = *outcome.Error
	}

	updated, didTransition, err := s.Store.FailBooking(ctx, outcome.PaymentIntentID, rooms, perr)
	if err != nil {
		return nil, err
	}
	if didTransition {
		// The slots a failed booking claimed go back on the market.
		if err := s.Store.ReleaseClaims(ctx, updated.ID); err != nil {
			logger.ErrorLogger.Errorf("Failed to release claims for failed booking %s: %v", updated.ID, err)
		}
	}
	return updated, nil
}

// dispatchConfirmation sends the confirmation email. Best effort: the
// booking is already confirmed and a mail failure must never surface to the
// caller.
func (s *ReconciliationService) dispatchConfirmation(ctx context.Context, booking *booking_models.Booking) {
	user, err := s.Store.GetUserByID(ctx, booking.UserID)
	if err != nil {
		logger.ErrorLogger.Errorf("Cannot send confirmation for booking %s: %v", booking.ID, err)
		return
	}

	data := mail.ConfirmationData{
		FirstName:   user.FirstName,
		BookingID:   booking.ID,
		BookingType: booking.BookingType,
		Total:       pricing.FormatCents(booking.TotalAmount),
	}
	for _, room := range booking.Rooms {
		data.Rooms = append(data.Rooms, mail.ConfirmationRoom{
			Name:     room.RoomName,
			TimeSlot: room.TimeSlot,
			Dates:    room.Dates,
		})
	}
	mail.SendBookingConfirmationAsync(s.Mailer, user.Email, data)
}

// razorpayEvent is the webhook envelope for payment events.
type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type razorpayPayment struct {
	ID               string      `json:"id"`
	OrderID          string      `json:"order_id"`
	Status           string      `json:"status"`
	Amount           json.Number `json:"amount"`
	Currency         string      `json:"currency"`
	Method           string      `json:"method"`
	ErrorCode        string      `json:"error_code"`
	ErrorDescription string      `json:"error_description"`
	ErrorReason      string      `json:"error_reason"`
}

func outcomeFromPayment(p razorpayPayment) (PaymentOutcome, error) {
	amount, _ := p.Amount.Int64()
	outcome := PaymentOutcome{
		PaymentIntentID: p.OrderID,
		Amount:          amount,
		Currency:        p.Currency,
		Method:          p.Method,
	}

	switch p.Status {
	case "captured":
		outcome.Status = OutcomeSucceeded
	case "failed":
		outcome.Status = OutcomeFailed
		msg := p.ErrorDescription
		if msg == "" {
			msg = "payment failed"
		}
		outcome.Error = &booking_models.PaymentError{
			Message:     msg,
			Code:        p.ErrorCode,
			DeclineCode: p.ErrorReason,
		}
	default:
		return outcome, apperrors.NewValidation("payment %s is not finalized (status %q)", p.ID, p.Status)
	}
	return outcome, nil
}

// Webhook handles POST /payments/webhook. The processor retries deliveries,
// so the same event can arrive more than once; Reconcile absorbs duplicates.
func (s *ReconciliationService) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to read webhook body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !s.PaymentClient.VerifyWebhookSignature(signature, string(body), s.WebhookSecret) {
		logger.ErrorLogger.Error("Webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event razorpayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.ErrorLogger.Errorf("Invalid webhook payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if event.Event != "payment.captured" && event.Event != "payment.failed" {
		logger.InfoLogger.Infof("Ignoring webhook event %q", event.Event)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	outcome, err := outcomeFromPayment(event.Payload.Payment.Entity)
	if err != nil {
		respondError(c, err)
		return
	}

	booking, err := s.Reconcile(c.Request.Context(), outcome)
	if err != nil {
		logger.ErrorLogger.Errorf("Webhook reconciliation for intent %s failed: %v", outcome.PaymentIntentID, err)
		respondError(c, err)
		return
	}

	logger.InfoLogger.Infof("Webhook %s reconciled booking %s (status %s)", event.Event, booking.ID, booking.Status)
	c.JSON(http.StatusOK, gin.H{"status": "processed", "booking_id": booking.ID})
}

// VerifyRequest is the client-initiated reconciliation payload, sent after
// the hosted checkout returns.
type VerifyRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
}

// Verify handles POST /payments/verify. It fetches the processor's current
// view of the payment and reconciles whatever the processor reports — the
// client's claim of success is never trusted. A processor retrieval failure
// is fatal to this request and must be retried by the caller.
func (s *ReconciliationService) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	raw, err := s.PaymentClient.FetchPayment(req.PaymentID)
	if err != nil {
		respondError(c, &apperrors.UpstreamError{Service: "payment processor", Err: err})
		return
	}

	outcome, err := outcomeFromPayment(paymentFromMap(raw))
	if err != nil {
		respondError(c, err)
		return
	}

	booking, err := s.Reconcile(c.Request.Context(), outcome)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// paymentFromMap converts the SDK's map response into the typed payment.
func paymentFromMap(raw map[string]interface{}) razorpayPayment {
	var p razorpayPayment
	p.ID, _ = raw["id"].(string)
	p.OrderID, _ = raw["order_id"].(string)
	p.Status, _ = raw["status"].(string)
	p.Currency, _ = raw["currency"].(string)
	p.Method, _ = raw["method"].(string)
	p.ErrorCode, _ = raw["error_code"].(string)
	p.ErrorDescription, _ = raw["error_description"].(string)
	p.ErrorReason, _ = raw["error_reason"].(string)

	switch amount := raw["amount"].(type) {
	case float64:
		p.Amount = json.Number(fmt.Sprintf("%.0f", amount))
	case json.Number:
		p.Amount = amount
	case int64:
		p.Amount = json.Number(fmt.Sprintf("%d", amount))
	}
	return p
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
