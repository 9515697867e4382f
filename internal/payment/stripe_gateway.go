package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// stripeMinSessionLifetime is the shortest expiry Stripe accepts for a
// Checkout Session.
const stripeMinSessionLifetime = 30 * time.Minute

const checkoutSessionCompleted = "checkout.session.completed"

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeConfig configures the StripeGateway.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Backends      *stripe.Backends
	Clock         func() time.Time

	sessions stripeSessionAPI
}

// StripeGateway opens Stripe Checkout Sessions and verifies their webhooks.
type StripeGateway struct {
	sessions      stripeSessionAPI
	webhookSecret string
	successURL    string
	cancelURL     string
	clock         func() time.Time
	logger        zerolog.Logger
}

// NewStripeGateway constructs a Stripe gateway from cfg.
func NewStripeGateway(cfg StripeConfig, logger zerolog.Logger) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.sessions == nil {
		return nil, errors.New("stripe: api key is required")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}

	sessions := cfg.sessions
	if sessions == nil {
		sessions = client.New(apiKey, cfg.Backends).CheckoutSessions
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &StripeGateway{
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		clock:         clock,
		logger:        logger.With().Str("gateway", "stripe").Logger(),
	}, nil
}

// Name implements Gateway.
func (g *StripeGateway) Name() string {
	return "stripe"
}

// CreateSession implements Gateway with a one-line Checkout Session.
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	orderID := req.OrderID.String()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(orderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(int64(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + req.OrderNumber),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(orderID)

	params.Metadata = map[string]string{
		"order_id":     orderID,
		"order_number": req.OrderNumber,
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}

	if !req.ExpiresAt.IsZero() && req.ExpiresAt.Sub(g.clock()) >= stripeMinSessionLifetime {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}

	session, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	expiresAt := req.ExpiresAt
	if session.ExpiresAt != 0 {
		expiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}

	g.logger.Info().
		Str("session_id", session.ID).
		Str("order_id", orderID).
		Msg("checkout session created")

	return &Session{
		ID:          session.ID,
		ClientToken: session.URL,
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify implements Gateway by checking the Stripe-Signature header of a
// webhook payload and that the completed session it carries paid for
// exactly this order.
func (g *StripeGateway) Verify(_ context.Context, req VerifyRequest) (bool, error) {
	event, session, err := g.constructSessionEvent(req.Signature, req.Payload)
	if err != nil {
		g.logger.Warn().Err(err).Str("order_id", req.OrderID.String()).Msg("webhook rejected")
		return false, nil
	}

	log := g.logger.With().
		Str("order_id", req.OrderID.String()).
		Str("event_session_id", session.ID).
		Logger()

	if string(event.Type) != checkoutSessionCompleted {
		log.Warn().Str("event_type", string(event.Type)).Msg("unexpected webhook event type")
		return false, nil
	}
	if req.SessionID != "" && session.ID != req.SessionID {
		log.Warn().Str("session_id", req.SessionID).Msg("webhook is for a different session")
		return false, nil
	}
	if sessionOrderID(session) != req.OrderID.String() {
		log.Warn().Str("client_reference_id", session.ClientReferenceID).Msg("webhook is for a different order")
		return false, nil
	}
	if session.AmountTotal != int64(req.Amount) {
		log.Warn().
			Int64("amount_total", session.AmountTotal).
			Int64("order_total", int64(req.Amount)).
			Msg("webhook amount does not match order total")
		return false, nil
	}

	return session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

// ParseWebhook implements WebhookParser for checkout session events.
// Events that do not carry a checkout session are returned with a nil
// OrderID so callers can acknowledge and skip them.
func (g *StripeGateway) ParseWebhook(signature string, payload []byte) (*WebhookEvent, error) {
	event, session, err := g.constructSessionEvent(signature, payload)
	if err != nil {
		g.logger.Warn().Err(err).Msg("webhook rejected")
		return nil, ErrInvalidWebhook
	}

	out := &WebhookEvent{
		SessionID: session.ID,
		Completed: string(event.Type) == checkoutSessionCompleted,
	}
	if ref := sessionOrderID(session); ref != "" {
		orderID, err := uuid.Parse(ref)
		if err != nil {
			g.logger.Warn().Str("client_reference_id", ref).Msg("webhook order reference is not a uuid")
			return out, nil
		}
		out.OrderID = orderID
	}
	return out, nil
}

// constructSessionEvent authenticates payload and decodes the checkout
// session it carries, if any.
func (g *StripeGateway) constructSessionEvent(signature string, payload []byte) (stripe.Event, *stripe.CheckoutSession, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return event, nil, err
	}

	session := &stripe.CheckoutSession{}
	if event.Data == nil || !strings.HasPrefix(string(event.Type), "checkout.session.") {
		return event, session, nil
	}
	if err := json.Unmarshal(event.Data.Raw, session); err != nil {
		return event, nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	return event, session, nil
}

// sessionOrderID returns the order a session was opened for.
func sessionOrderID(session *stripe.CheckoutSession) string {
	if session.ClientReferenceID != "" {
		return session.ClientReferenceID
	}
	return session.Metadata["order_id"]
}
