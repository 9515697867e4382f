package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// SandboxGateway is a local gateway for development and tests. Sessions are
// minted in-process and confirmations are signed with a shared secret.
type SandboxGateway struct {
	secret []byte
	logger zerolog.Logger
}

// NewSandboxGateway creates a sandbox gateway signing with secret.
func NewSandboxGateway(secret string, logger zerolog.Logger) (*SandboxGateway, error) {
	if secret == "" {
		return nil, errors.New("sandbox: secret is required")
	}
	return &SandboxGateway{
		secret: []byte(secret),
		logger: logger.With().Str("gateway", "sandbox").Logger(),
	}, nil
}

// Name implements Gateway.
func (g *SandboxGateway) Name() string {
	return "sandbox"
}

// CreateSession implements Gateway.
func (g *SandboxGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := "sess_" + ulid.Make().String()
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(id))

	g.logger.Debug().
		Str("session_id", id).
		Str("order_id", req.OrderID.String()).
		Msg("sandbox session created")

	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(stripeMinSessionLifetime).UTC()
	}

	return &Session{
		ID:          id,
		ClientToken: hex.EncodeToString(mac.Sum(nil)),
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify implements Gateway by comparing the signature with Sign in constant
// time. The signed data includes the order id, so a confirmation issued for
// one order never verifies another.
func (g *SandboxGateway) Verify(_ context.Context, req VerifyRequest) (bool, error) {
	got, err := hex.DecodeString(req.Signature)
	if err != nil {
		return false, nil
	}
	if !hmac.Equal(got, g.sum(req.OrderID, req.SessionID, req.Payload)) {
		g.logger.Warn().
			Str("order_id", req.OrderID.String()).
			Str("session_id", req.SessionID).
			Msg("sandbox signature rejected")
		return false, nil
	}
	return true, nil
}

// Sign returns the signature a client must present to confirm sessionID
// for orderID.
func (g *SandboxGateway) Sign(orderID uuid.UUID, sessionID string, payload []byte) string {
	return hex.EncodeToString(g.sum(orderID, sessionID, payload))
}

func (g *SandboxGateway) sum(orderID uuid.UUID, sessionID string, payload []byte) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(orderID.String()))
	mac.Write([]byte("|"))
	mac.Write([]byte(sessionID))
	mac.Write([]byte("|"))
	mac.Write(payload)
	return mac.Sum(nil)
}
