package notify

import (
	"fmt"

	"freshcart/internal/model"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Make("en-IN"))

// FormatAmount renders a minor-unit amount for humans, for example "₹ 640.00".
// Unknown currency codes fall back to the plain decimal with the code appended.
func FormatAmount(amount model.Money, currencyCode string) string {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return fmt.Sprintf("%s %s", amount.String(), currencyCode)
	}
	major, _ := amount.Decimal().Float64()
	return printer.Sprint(currency.Symbol(unit.Amount(major)))
}

// OrderEvent builds an event describing order's current state.
func OrderEvent(eventType EventType, order *model.Order, currencyCode string) Event {
	return Event{
		Type:        eventType,
		UserID:      order.UserID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Payload: map[string]any{
			"status":         string(order.Status),
			"paymentStatus":  string(order.PaymentStatus),
			"paymentMethod":  string(order.PaymentMethod),
			"total":          int64(order.Total),
			"totalFormatted": FormatAmount(order.Total, currencyCode),
		},
	}
}
