package models

import (
	"encoding/json"
)

// Order is a top-level purchase record with a lifecycle status and a
// collection of Items. Items are owned exclusively by the Order and are
// cascade-deleted with it. The id is assigned by the store at creation and
// never changes.
type Order struct {
	ID              int         `json:"id"`
	CustomerID      int         `json:"customer_id"`
	OrderDate       Date        `json:"order_date"`
	Status          OrderStatus `json:"status"`
	ShippingAddress string      `json:"shipping_address"`
	TotalAmount     float64     `json:"total_amount"`
	PaymentMethod   string      `json:"payment_method"`
	ShippingCost    float64     `json:"shipping_cost"`
	ExpectedDate    Date        `json:"expected_date"`
	OrderNotes      string      `json:"order_notes"`
	Items           []Item      `json:"items"`
}

type orderPayload struct {
	CustomerID      *int            `json:"customer_id"`
	OrderDate       *string         `json:"order_date"`
	Status          *string         `json:"status"`
	ShippingAddress *string         `json:"shipping_address"`
	TotalAmount     *float64        `json:"total_amount"`
	PaymentMethod   *string         `json:"payment_method"`
	ShippingCost    *float64        `json:"shipping_cost"`
	ExpectedDate    *string         `json:"expected_date"`
	OrderNotes      *string         `json:"order_notes"`
	Items           json.RawMessage `json:"items"`
}

// Deserialize populates the Order from a JSON payload, recursively
// deserializing nested items. It fails with a ValidationError when a required
// key is absent, a value has the wrong shape, or the status is not a
// recognized symbolic name. The id is never taken from the payload.
//
// order_date defaults to today and status to STARTED when absent; order_notes
// and items are optional.
func (o *Order) Deserialize(data []byte) error {
	var payload orderPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return NewValidationError("invalid Order: body of request contained bad or no data", err)
	}

	missing := ""
	switch {
	case payload.CustomerID == nil:
		missing = "customer_id"
	case payload.ShippingAddress == nil:
		missing = "shipping_address"
	case payload.TotalAmount == nil:
		missing = "total_amount"
	case payload.PaymentMethod == nil:
		missing = "payment_method"
	case payload.ShippingCost == nil:
		missing = "shipping_cost"
	case payload.ExpectedDate == nil:
		missing = "expected_date"
	}
	if missing != "" {
		return NewValidationError("invalid Order: missing "+missing, nil)
	}

	if *payload.TotalAmount < 0 {
		return NewValidationError("invalid Order: total_amount must not be negative", nil)
	}
	if *payload.ShippingCost < 0 {
		return NewValidationError("invalid Order: shipping_cost must not be negative", nil)
	}

	orderDate := Today()
	if payload.OrderDate != nil {
		parsed, err := ParseDate(*payload.OrderDate)
		if err != nil {
			return NewValidationError("invalid Order: order_date must be an ISO-8601 date", err)
		}
		orderDate = parsed
	}

	expectedDate, err := ParseDate(*payload.ExpectedDate)
	if err != nil {
		return NewValidationError("invalid Order: expected_date must be an ISO-8601 date", err)
	}

	status := StatusStarted
	if payload.Status != nil {
		status, err = ParseOrderStatus(*payload.Status)
		if err != nil {
			return err
		}
	}

	items, err := deserializeItems(payload.Items)
	if err != nil {
		return err
	}

	o.CustomerID = *payload.CustomerID
	o.OrderDate = orderDate
	o.Status = status
	o.ShippingAddress = *payload.ShippingAddress
	o.TotalAmount = *payload.TotalAmount
	o.PaymentMethod = *payload.PaymentMethod
	o.ShippingCost = *payload.ShippingCost
	o.ExpectedDate = expectedDate
	if payload.OrderNotes != nil {
		o.OrderNotes = *payload.OrderNotes
	}
	o.Items = items
	return nil
}

func deserializeItems(raw json.RawMessage) ([]Item, error) {
	items := []Item{}
	if len(raw) == 0 || string(raw) == "null" {
		return items, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, NewValidationError("invalid Order: items must be a list", err)
	}
	for _, element := range elements {
		var item Item
		if err := item.Deserialize(element); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
