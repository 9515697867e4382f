package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78/webhook"
)

func TestOrderHandler_Place(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()

	tests := []struct {
		name           string
		body           string
		mockReturn     *model.PlaceOrderResponse
		mockError      error
		expectService  bool
		expectedStatus int
		expectedCode   string
	}{
		{
			name:          "Success",
			body:          `{"addressId":"` + addressID.String() + `","paymentMethod":"COD","couponCode":"SAVE20"}`,
			expectService: true,
			mockReturn: &model.PlaceOrderResponse{
				OrderID:       uuid.New(),
				OrderNumber:   "FC-2025-000042",
				Status:        model.OrderStatusConfirmed,
				PaymentStatus: model.PaymentStatusPending,
				Total:         50000,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Invalid JSON",
			body:           `{invalid json}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name:           "Missing address",
			body:           `{"paymentMethod":"COD"}`,
			expectService:  true,
			mockError:      model.NewMissingFieldError("addressId"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeMissingField,
		},
		{
			name:           "Unserviceable address",
			body:           `{"addressId":"` + addressID.String() + `","paymentMethod":"COD"}`,
			expectService:  true,
			mockError:      model.ErrAddressNotServiceable,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   model.ErrCodeAddressNotServed,
		},
		{
			name:           "Insufficient stock",
			body:           `{"addressId":"` + addressID.String() + `","paymentMethod":"COD"}`,
			expectService:  true,
			mockError:      model.NewInsufficientStockError("rice-5kg", 1),
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeInsufficientStock,
		},
		{
			name:           "Coupon limit reached",
			body:           `{"addressId":"` + addressID.String() + `","paymentMethod":"COD","couponCode":"SAVE20"}`,
			expectService:  true,
			mockError:      model.ErrCouponUsageLimitReached,
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeCouponUsageLimitReached,
		},
		{
			name:           "Coupon below minimum",
			body:           `{"addressId":"` + addressID.String() + `","paymentMethod":"COD","couponCode":"SAVE20"}`,
			expectService:  true,
			mockError:      model.NewCouponBelowMinimumError(20000),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   model.ErrCodeCouponBelowMinimum,
		},
		{
			name:           "Wallet too low",
			body:           `{"addressId":"` + addressID.String() + `","paymentMethod":"WALLET"}`,
			expectService:  true,
			mockError:      model.ErrInsufficientWalletBalance,
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   model.ErrCodeInsufficientWallet,
		},
		{
			name:           "Gateway timeout",
			body:           `{"addressId":"` + addressID.String() + `","paymentMethod":"ONLINE"}`,
			expectService:  true,
			mockError:      model.ErrGatewayTimeout,
			expectedStatus: http.StatusGatewayTimeout,
			expectedCode:   model.ErrCodeGatewayTimeout,
		},
		{
			name:           "Gateway error",
			body:           `{"addressId":"` + addressID.String() + `","paymentMethod":"ONLINE"}`,
			expectService:  true,
			mockError:      model.ErrPaymentGateway,
			expectedStatus: http.StatusBadGateway,
			expectedCode:   model.ErrCodePaymentGateway,
		},
		{
			name:           "Unexpected error",
			body:           `{"addressId":"` + addressID.String() + `","paymentMethod":"COD"}`,
			expectService:  true,
			mockError:      errors.New("failed to commit transaction: conn closed"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   model.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, zerolog.Nop())

			if tt.expectService {
				mockService.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req *model.PlaceOrderRequest) bool {
					return req.UserID == userID
				})).Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			route(http.MethodPost, "/api/orders", withUser(userID, handler.Place)).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var body model.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, tt.expectedCode, body.Error)
				assert.NotEmpty(t, body.CorrelationID)
				assert.NotContains(t, body.Message, "conn closed")
			} else {
				var resp model.PlaceOrderResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, tt.mockReturn.OrderNumber, resp.OrderNumber)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_PlaceReportsDetails(t *testing.T) {
	userID := uuid.New()
	mockService := new(MockOrderService)
	handler := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, model.NewBelowAreaMinimumError(20000))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"addressId":"`+uuid.NewString()+`","paymentMethod":"COD"}`))
	w := httptest.NewRecorder()
	route(http.MethodPost, "/api/orders", withUser(userID, handler.Place)).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body model.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, model.ErrCodeBelowAreaMinimum, body.Error)
	assert.EqualValues(t, 20000, body.Details["shortfall"])
}

func TestOrderHandler_GetByID(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	tests := []struct {
		name           string
		orderID        string
		mockReturn     *model.OrderResponse
		mockError      error
		expectService  bool
		expectedStatus int
	}{
		{
			name:           "Success",
			orderID:        orderID.String(),
			mockReturn:     &model.OrderResponse{Order: model.Order{ID: orderID, UserID: userID}},
			expectService:  true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Malformed id is not found",
			orderID:        "not-a-uuid",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Not found",
			orderID:        orderID.String(),
			mockError:      model.ErrOrderNotFound,
			expectService:  true,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, zerolog.Nop())

			if tt.expectService {
				mockService.On("GetByID", mock.Anything, orderID, userID).Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/orders/"+tt.orderID, nil)
			w := httptest.NewRecorder()
			route(http.MethodGet, "/api/orders/{id}", withUser(userID, handler.GetByID)).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Confirm(t *testing.T) {
	orderID := uuid.New()
	confirmed := &model.OrderResponse{Order: model.Order{ID: orderID, Status: model.OrderStatusConfirmed, PaymentStatus: model.PaymentStatusPaid}}

	t.Run("JSON confirmation", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService, zerolog.Nop())
		mockService.On("ConfirmOnlinePayment", mock.Anything, &model.ConfirmPaymentRequest{
			OrderID:   orderID,
			SessionID: "sess_1",
			Signature: "abc123",
			Payload:   "sess_1|paid",
		}).Return(confirmed, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/confirm",
			strings.NewReader(`{"sessionId":"sess_1","signature":"abc123","payload":"sess_1|paid"}`))
		w := httptest.NewRecorder()
		route(http.MethodPost, "/api/orders/{id}/confirm", handler.Confirm).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Raw webhook with signature header", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService, zerolog.Nop())
		payload := `{"type":"checkout.session.completed"}`
		mockService.On("ConfirmOnlinePayment", mock.Anything, &model.ConfirmPaymentRequest{
			OrderID:   orderID,
			Signature: "t=1,v1=deadbeef",
			Payload:   payload,
		}).Return(confirmed, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/confirm", strings.NewReader(payload))
		req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
		w := httptest.NewRecorder()
		route(http.MethodPost, "/api/orders/{id}/confirm", handler.Confirm).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Verification failure", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService, zerolog.Nop())
		mockService.On("ConfirmOnlinePayment", mock.Anything, mock.Anything).Return(nil, model.ErrPaymentVerificationFailed)

		req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/confirm",
			strings.NewReader(`{"signature":"forged"}`))
		w := httptest.NewRecorder()
		route(http.MethodPost, "/api/orders/{id}/confirm", handler.Confirm).ServeHTTP(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})

	t.Run("Late capture after reclaim", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService, zerolog.Nop())
		mockService.On("ConfirmOnlinePayment", mock.Anything, mock.Anything).
			Return(nil, model.NewInvalidTransitionError(model.OrderStatusCancelled, model.OrderStatusConfirmed))

		req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/confirm",
			strings.NewReader(`{"signature":"abc"}`))
		w := httptest.NewRecorder()
		route(http.MethodPost, "/api/orders/{id}/confirm", handler.Confirm).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestOrderHandler_StripeWebhook(t *testing.T) {
	orderID := uuid.New()
	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"client_reference_id":"` + orderID.String() + `"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})

	post := func(h *OrderHandler, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
		if signature != "" {
			req.Header.Set("Stripe-Signature", signature)
		}
		w := httptest.NewRecorder()
		route(http.MethodPost, "/webhooks/stripe", h.StripeWebhook).ServeHTTP(w, req)
		return w
	}

	t.Run("Completed session confirms the order", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("HandlePaymentWebhook", mock.Anything, signed.Header, payload).Return(&model.OrderResponse{
			Order: model.Order{ID: orderID, Status: model.OrderStatusConfirmed, PaymentStatus: model.PaymentStatusPaid},
		}, nil)

		w := post(NewOrderHandler(mockService, zerolog.Nop()), signed.Header)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, orderID.String(), body["id"])
		assert.Equal(t, string(model.OrderStatusConfirmed), body["status"])
		mockService.AssertExpectations(t)
	})

	t.Run("Other events are acknowledged", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("HandlePaymentWebhook", mock.Anything, signed.Header, payload).Return(nil, nil)

		w := post(NewOrderHandler(mockService, zerolog.Nop()), signed.Header)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"received":true}`, w.Body.String())
	})

	t.Run("Forged signature", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("HandlePaymentWebhook", mock.Anything, "t=1,v1=deadbeef", payload).Return(nil, model.ErrPaymentVerificationFailed)

		w := post(NewOrderHandler(mockService, zerolog.Nop()), "t=1,v1=deadbeef")

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})

	t.Run("Missing signature header", func(t *testing.T) {
		mockService := new(MockOrderService)

		w := post(NewOrderHandler(mockService, zerolog.Nop()), "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "HandlePaymentWebhook", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_Cancel(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	mockService := new(MockOrderService)
	handler := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("CancelPendingOnlineOrder", mock.Anything, orderID, userID).Return(&model.OrderResponse{
		Order: model.Order{ID: orderID, Status: model.OrderStatusCancelled, PaymentStatus: model.PaymentStatusFailed},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	route(http.MethodPost, "/api/orders/{id}/cancel", withUser(userID, handler.Cancel)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.OrderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, model.OrderStatusCancelled, resp.Status)
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		name           string
		body           string
		mockError      error
		expectService  bool
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           `{"status":"PROCESSING"}`,
			expectService:  true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing status",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid transition",
			body:           `{"status":"PROCESSING"}`,
			mockError:      model.NewInvalidTransitionError(model.OrderStatusDelivered, model.OrderStatusProcessing),
			expectService:  true,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, zerolog.Nop())

			if tt.expectService {
				var resp *model.OrderResponse
				if tt.mockError == nil {
					resp = &model.OrderResponse{Order: model.Order{ID: orderID, Status: model.OrderStatusProcessing}}
				}
				mockService.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusProcessing).Return(resp, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPatch, "/api/admin/orders/"+orderID.String()+"/status", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			route(http.MethodPatch, "/api/admin/orders/{id}/status", handler.UpdateStatus).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}
