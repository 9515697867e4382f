package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType selects how a coupon's Value is applied.
type DiscountType string

const (
	DiscountPercentage   DiscountType = "PERCENTAGE"
	DiscountFixed        DiscountType = "FIXED"
	DiscountFreeDelivery DiscountType = "FREE_DELIVERY"
)

// Coupon is a discount code. Value is a percentage for PERCENTAGE coupons
// and an amount in major currency units for FIXED coupons.
type Coupon struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Code              string          `json:"code" db:"code"`
	DiscountType      DiscountType    `json:"discountType" db:"discount_type"`
	Value             decimal.Decimal `json:"value" db:"value"`
	MinOrderAmount    Money           `json:"minOrderAmount" db:"min_order_amount"`
	MaxDiscountAmount *Money          `json:"maxDiscountAmount,omitempty" db:"max_discount_amount"`
	TotalUsageLimit   *int            `json:"totalUsageLimit,omitempty" db:"total_usage_limit"`
	PerUserUsageLimit int             `json:"perUserUsageLimit" db:"per_user_usage_limit"`
	ValidFrom         time.Time       `json:"validFrom" db:"valid_from"`
	ValidUntil        time.Time       `json:"validUntil" db:"valid_until"`
	IsActive          bool            `json:"isActive" db:"is_active"`
	UsedCount         int             `json:"usedCount" db:"used_count"`
	ReservedCount     int             `json:"reservedCount" db:"reserved_count"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
}

// RedemptionStatus tracks whether a coupon slot is held or spent.
type RedemptionStatus string

const (
	RedemptionReserved RedemptionStatus = "RESERVED"
	RedemptionRedeemed RedemptionStatus = "REDEEMED"
)

// CouponRedemption links a coupon use to a user and an order.
type CouponRedemption struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	CouponID  uuid.UUID        `json:"couponId" db:"coupon_id"`
	UserID    uuid.UUID        `json:"userId" db:"user_id"`
	OrderID   uuid.UUID        `json:"orderId" db:"order_id"`
	Status    RedemptionStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// DiscountResult is the advisory outcome of coupon validation.
type DiscountResult struct {
	CouponID     uuid.UUID    `json:"couponId"`
	Code         string       `json:"code"`
	Type         DiscountType `json:"type"`
	Discount     Money        `json:"discount"`
	FreeDelivery bool         `json:"freeDelivery"`
}
