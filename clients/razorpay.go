package clients

import (
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// RazorpayClientWrapper is the payment-processor surface the booking and
// reconciliation services depend on. Tests substitute a fake; production
// uses the SDK-backed RazorpayClient.
type RazorpayClientWrapper interface {
	// CreateOrder creates a charge intent for a pending booking. The returned
	// order id is the correlation key between the booking and its payment
	// outcome.
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)

	// FetchPayment retrieves the processor's current view of a payment by id.
	FetchPayment(paymentID string) (map[string]interface{}, error)

	// VerifyWebhookSignature checks the authenticity of a webhook delivery.
	VerifyWebhookSignature(signature, body, webhookSecret string) bool
}

// RazorpayClient implements RazorpayClientWrapper using the Razorpay SDK.
type RazorpayClient struct {
	Client *razorpay.Client
}

// NewRazorpayClient initializes the underlying SDK client with the provided
// key ID and secret.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		Client: razorpay.NewClient(keyID, keySecret),
	}
}

func (r *RazorpayClient) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return r.Client.Order.Create(data, nil)
}

func (r *RazorpayClient) FetchPayment(paymentID string) (map[string]interface{}, error) {
	return r.Client.Payment.Fetch(paymentID, nil, nil)
}

// VerifyWebhookSignature compares the received signature against a computed
// one using the webhook secret. The SDK helper takes (payload, signature,
// secret) in that order.
func (r *RazorpayClient) VerifyWebhookSignature(signature, body, webhookSecret string) bool {
	return utils.VerifyWebhookSignature(body, signature, webhookSecret)
}
