package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string         `json:"error"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"

	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeAddressNotFound    = "ADDRESS_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeOrderInvalidState  = "ORDER_INVALID_STATE"
	ErrCodeAddressNotServed   = "ADDRESS_NOT_SERVICEABLE"
	ErrCodeBelowAreaMinimum   = "BELOW_AREA_MINIMUM"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeInsufficientStock  = "INSUFFICIENT_STOCK"
	ErrCodeProductUnavailable = "PRODUCT_UNAVAILABLE"

	ErrCodeCouponNotFound          = "COUPON_NOT_FOUND"
	ErrCodeCouponInactive          = "COUPON_INACTIVE"
	ErrCodeCouponExpired           = "COUPON_EXPIRED"
	ErrCodeCouponBelowMinimum      = "COUPON_BELOW_MINIMUM"
	ErrCodeCouponUsageLimitReached = "COUPON_USAGE_LIMIT_REACHED"
	ErrCodeCouponPerUserLimit      = "COUPON_PER_USER_LIMIT_REACHED"

	ErrCodeInsufficientWallet  = "INSUFFICIENT_WALLET_BALANCE"
	ErrCodePaymentVerification = "PAYMENT_VERIFICATION_FAILED"
	ErrCodeGatewayTimeout      = "GATEWAY_TIMEOUT"
	ErrCodePaymentGateway      = "PAYMENT_GATEWAY_ERROR"
)

// DomainError is an expected, user-correctable failure identified by Code.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so errors.Is works
// against the sentinels below even when details are attached.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error with an extra detail field.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidPaymentMethod = NewDomainError(ErrCodeInvalidPaymentMethod, "Payment method must be COD, WALLET or ONLINE")
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrAddressNotFound      = NewDomainError(ErrCodeAddressNotFound, "Delivery address not found")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrOrderInvalidState    = NewDomainError(ErrCodeOrderInvalidState, "Order cannot be changed in its current state")

	ErrAddressNotServiceable = NewDomainError(ErrCodeAddressNotServed, "Delivery is not available for this address")
	ErrBelowAreaMinimum      = NewDomainError(ErrCodeBelowAreaMinimum, "Cart total is below the minimum order value for this area")
	ErrEmptyCart             = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrInsufficientStock     = NewDomainError(ErrCodeInsufficientStock, "Not enough stock for a product in the cart")
	ErrProductUnavailable    = NewDomainError(ErrCodeProductUnavailable, "A product in the cart is no longer available")

	ErrCouponNotFound          = NewDomainError(ErrCodeCouponNotFound, "Coupon code not found")
	ErrCouponInactive          = NewDomainError(ErrCodeCouponInactive, "Coupon is not active")
	ErrCouponExpired           = NewDomainError(ErrCodeCouponExpired, "Coupon is expired or not yet valid")
	ErrCouponBelowMinimum      = NewDomainError(ErrCodeCouponBelowMinimum, "Cart total is below the coupon minimum")
	ErrCouponUsageLimitReached = NewDomainError(ErrCodeCouponUsageLimitReached, "Coupon usage limit has been reached")
	ErrCouponPerUserLimit      = NewDomainError(ErrCodeCouponPerUserLimit, "Coupon has already been used the maximum number of times")

	ErrInsufficientWalletBalance = NewDomainError(ErrCodeInsufficientWallet, "Wallet balance is too low for this order")
	ErrPaymentVerificationFailed = NewDomainError(ErrCodePaymentVerification, "Payment could not be verified")
	ErrGatewayTimeout            = NewDomainError(ErrCodeGatewayTimeout, "Payment gateway did not respond in time")
	ErrPaymentGateway            = NewDomainError(ErrCodePaymentGateway, "Payment gateway rejected the session")
)

// NewMissingFieldError reports a required request field that was empty.
func NewMissingFieldError(field string) *DomainError {
	return NewDomainError(ErrCodeMissingField, fmt.Sprintf("%s is required", field)).
		WithDetail("field", field)
}

// NewInsufficientStockError reports how many units of a product remain.
func NewInsufficientStockError(productID string, available int) *DomainError {
	return ErrInsufficientStock.
		WithDetail("productId", productID).
		WithDetail("available", available)
}

// NewProductUnavailableError reports a deactivated or deleted product.
func NewProductUnavailableError(productID string) *DomainError {
	return ErrProductUnavailable.WithDetail("productId", productID)
}

// NewCouponBelowMinimumError reports how far the subtotal is from the coupon minimum.
func NewCouponBelowMinimumError(shortfall Money) *DomainError {
	return ErrCouponBelowMinimum.WithDetail("shortfall", int64(shortfall))
}

// NewBelowAreaMinimumError reports how far the subtotal is from the area minimum.
func NewBelowAreaMinimumError(shortfall Money) *DomainError {
	return ErrBelowAreaMinimum.WithDetail("shortfall", int64(shortfall))
}

// NewInvalidTransitionError reports a status change the state machine forbids.
func NewInvalidTransitionError(from, to OrderStatus) *DomainError {
	return ErrOrderInvalidState.
		WithDetail("from", string(from)).
		WithDetail("to", string(to))
}
