// Package client is a Go client for the orders REST API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CSCI-GA-2820-SP24-003/orders/pkg/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func New(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type errorBody struct {
	Message string `json:"message"`
}

// CreateOrder posts a new order and returns it with its server-assigned ids.
func (c *Client) CreateOrder(order *models.Order) (*models.Order, error) {
	return c.sendOrder("POST", c.baseURL+"/orders", order, http.StatusCreated)
}

// GetOrder retrieves a single order. An absent id yields NotFoundError.
func (c *Client) GetOrder(orderID int) (*models.Order, error) {
	resp, err := c.do("GET", fmt.Sprintf("%s/orders/%d", c.baseURL, orderID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &models.NotFoundError{Resource: "Order", ID: orderID}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	var order models.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &order, nil
}

// ListOrders retrieves orders matching the given query parameters
// (order-start, order-end, total-min, total-max, customer-id, status,
// sort_by). A nil query lists everything.
func (c *Client) ListOrders(query url.Values) ([]models.Order, error) {
	endpoint := c.baseURL + "/orders"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.do("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	var orders []models.Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	c.logger.WithField("count", len(orders)).Info("Retrieved orders")
	return orders, nil
}

// UpdateOrder replaces the order's fields.
func (c *Client) UpdateOrder(order *models.Order) (*models.Order, error) {
	return c.sendOrder("PUT", fmt.Sprintf("%s/orders/%d", c.baseURL, order.ID), order, http.StatusOK)
}

// DeleteOrder removes an order and its items. Absent ids are not an error.
func (c *Client) DeleteOrder(orderID int) error {
	resp, err := c.do("DELETE", fmt.Sprintf("%s/orders/%d", c.baseURL, orderID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.errorFromResponse(resp)
	}
	return nil
}

// CancelOrder requests the cancel lifecycle transition.
func (c *Client) CancelOrder(orderID int) (*models.Order, error) {
	return c.transition(orderID, "cancel")
}

// PackOrder requests the packing lifecycle transition.
func (c *Client) PackOrder(orderID int) (*models.Order, error) {
	return c.transition(orderID, "packing")
}

// ShipOrder requests the ship lifecycle transition.
func (c *Client) ShipOrder(orderID int) (*models.Order, error) {
	return c.transition(orderID, "ship")
}

// DeliverOrder requests the deliver lifecycle transition.
func (c *Client) DeliverOrder(orderID int) (*models.Order, error) {
	return c.transition(orderID, "deliver")
}

// AddItem creates an item under an order.
func (c *Client) AddItem(orderID int, item *models.Item) (*models.Item, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	resp, err := c.do("POST", fmt.Sprintf("%s/orders/%d/items", c.baseURL, orderID), data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.errorFromResponse(resp)
	}

	var created models.Item
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &created, nil
}

// ListItems retrieves an order's items, optionally filtered by product_id or
// name substring.
func (c *Client) ListItems(orderID int, query url.Values) ([]models.Item, error) {
	endpoint := fmt.Sprintf("%s/orders/%d/items", c.baseURL, orderID)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.do("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	var items []models.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func (c *Client) transition(orderID int, name string) (*models.Order, error) {
	resp, err := c.do("PUT", fmt.Sprintf("%s/orders/%d/%s", c.baseURL, orderID, name), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &models.NotFoundError{Resource: "Order", ID: orderID}
	case http.StatusConflict:
		var body errorBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("transition %s conflicted", name)
		}
		return nil, &models.ConflictError{Message: body.Message}
	default:
		return nil, c.errorFromResponse(resp)
	}

	var order models.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"transition": name,
		"status":     order.Status,
	}).Info("Order transitioned")
	return &order, nil
}

func (c *Client) sendOrder(method, endpoint string, order *models.Order, wantStatus int) (*models.Order, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	resp, err := c.do(method, endpoint, data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &models.NotFoundError{Resource: "Order", ID: order.ID}
	}
	if resp.StatusCode != wantStatus {
		return nil, c.errorFromResponse(resp)
	}

	var result models.Order
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &result, nil
}

func (c *Client) do(method, endpoint string, body []byte) (*http.Response, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, endpoint, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach orders service: %w", err)
	}
	return resp, nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Errorf("orders service returned %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("orders service returned %d", resp.StatusCode)
}
