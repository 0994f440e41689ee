package models

import (
	"encoding/json"
	"fmt"
)

const (
	maxItemNameLength        = 64
	maxItemDescriptionLength = 1024
)

// Item is a line entry within an Order referencing a product, quantity, and
// price. The id is assigned by the store at creation and never changes.
type Item struct {
	ID          int     `json:"id"`
	OrderID     int     `json:"order_id"`
	ProductID   int     `json:"product_id"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	Description string  `json:"description"`
}

type itemPayload struct {
	OrderID     *int     `json:"order_id"`
	ProductID   *int     `json:"product_id"`
	Name        *string  `json:"name"`
	Quantity    *int     `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
	Description *string  `json:"description"`
}

// Deserialize populates the Item from a JSON payload. It fails with a
// ValidationError when a required key is missing or a value has the wrong
// shape. The id is never taken from the payload; order_id is optional because
// the item sub-resource routes carry the owning order in the path.
func (i *Item) Deserialize(data []byte) error {
	var payload itemPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return NewValidationError("invalid Item: body of request contained bad or no data", err)
	}
	return i.fromPayload(&payload)
}

func (i *Item) fromPayload(payload *itemPayload) error {
	missing := ""
	switch {
	case payload.ProductID == nil:
		missing = "product_id"
	case payload.Name == nil:
		missing = "name"
	case payload.Quantity == nil:
		missing = "quantity"
	case payload.UnitPrice == nil:
		missing = "unit_price"
	case payload.TotalPrice == nil:
		missing = "total_price"
	case payload.Description == nil:
		missing = "description"
	}
	if missing != "" {
		return NewValidationError("invalid Item: missing "+missing, nil)
	}

	if len(*payload.Name) > maxItemNameLength {
		return NewValidationError(fmt.Sprintf("invalid Item: name exceeds %d characters", maxItemNameLength), nil)
	}
	if len(*payload.Description) > maxItemDescriptionLength {
		return NewValidationError(fmt.Sprintf("invalid Item: description exceeds %d characters", maxItemDescriptionLength), nil)
	}

	if payload.OrderID != nil {
		i.OrderID = *payload.OrderID
	}
	i.ProductID = *payload.ProductID
	i.Name = *payload.Name
	i.Quantity = *payload.Quantity
	i.UnitPrice = *payload.UnitPrice
	i.TotalPrice = *payload.TotalPrice
	i.Description = *payload.Description
	return nil
}
