package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/CSCI-GA-2820-SP24-003/orders/pkg/models"
)

// OrderStore is the persistence gateway the handlers depend on.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id int) error
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, orderID, itemID int) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, orderID, itemID int) error
}

// EventPublisher publishes order mutation events. Publish failures are logged
// and never fail the request.
type EventPublisher interface {
	PublishOrderCreated(order *models.Order) error
	PublishOrderStatusChanged(order *models.Order, previous models.OrderStatus) error
	PublishOrderDeleted(orderID int) error
}

type WebSocketHub interface {
	Broadcast(messageType string, data interface{}, source string)
}

type Handler struct {
	store  OrderStore
	logger *logrus.Logger
	events EventPublisher
	wsHub  WebSocketHub
}

func NewHandler(store OrderStore, logger *logrus.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) SetEventPublisher(events EventPublisher) {
	h.events = events
}

func (h *Handler) SetWebSocketHub(hub WebSocketHub) {
	h.wsHub = hub
}

// RegisterRoutes wires every endpoint onto the router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	router.HandleFunc("/orders", h.ListOrders).Methods("GET")
	router.HandleFunc("/orders", h.CreateOrder).Methods("POST")
	router.HandleFunc("/orders/{id:[0-9]+}", h.GetOrder).Methods("GET")
	router.HandleFunc("/orders/{id:[0-9]+}", h.UpdateOrder).Methods("PUT")
	router.HandleFunc("/orders/{id:[0-9]+}", h.DeleteOrder).Methods("DELETE")

	router.HandleFunc("/orders/{id:[0-9]+}/cancel", h.CancelOrder).Methods("PUT")
	router.HandleFunc("/orders/{id:[0-9]+}/packing", h.PackOrder).Methods("PUT")
	router.HandleFunc("/orders/{id:[0-9]+}/ship", h.ShipOrder).Methods("PUT")
	router.HandleFunc("/orders/{id:[0-9]+}/deliver", h.DeliverOrder).Methods("PUT")

	router.HandleFunc("/orders/{id:[0-9]+}/items", h.ListItems).Methods("GET")
	router.HandleFunc("/orders/{id:[0-9]+}/items", h.CreateItem).Methods("POST")
	router.HandleFunc("/orders/{id:[0-9]+}/items/{item_id:[0-9]+}", h.GetItem).Methods("GET")
	router.HandleFunc("/orders/{id:[0-9]+}/items/{item_id:[0-9]+}", h.UpdateItem).Methods("PUT")
	router.HandleFunc("/orders/{id:[0-9]+}/items/{item_id:[0-9]+}", h.DeleteItem).Methods("DELETE")

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondWithError(w, http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s is not allowed on %s", r.Method, r.URL.Path))
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"name":    "Orders REST API Service",
		"version": "1.0",
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// ListOrders handles GET /orders with the optional query parameters
// order-start, order-end, total-min, total-max, customer-id, status, sort_by.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseOrderFilters(r.URL.Query())
	if err != nil {
		h.respondWithModelError(w, err)
		return
	}

	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		h.respondWithModelError(w, err)
		return
	}

	results := filters.Apply(orders)

	// An empty result for the customer-id filter specifically is a caller
	// error, distinguishing "no such customer" from a generic empty list.
	if filters.CustomerIDs != nil && len(results) == 0 {
		h.respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("no orders found for customer-id '%s'", filters.RawCustomerID))
		return
	}

	h.logger.WithField("count", len(results)).Info("Retrieved orders")
	h.respondWithJSON(w, http.StatusOK, results)
}

// CreateOrder handles POST /orders. Responds 201 with a Location header, 400
// on a malformed body, 415 on a wrong Content-Type.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if !h.checkContentType(w, r) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	order := &models.Order{}
	if err := order.Deserialize(body); err != nil {
		h.respondWithModelError(w, err)
		return
	}

	if err := h.store.CreateOrder(r.Context(), order); err != nil {
		h.respondWithModelError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"customer_id":  order.CustomerID,
		"total_amount": order.TotalAmount,
		"items_count":  len(order.Items),
	}).Info("Order created")

	h.publishCreated(order)
	h.broadcast("order_created", order)

	w.Header().Set("Location", fmt.Sprintf("/orders/%d", order.ID))
	h.respondWithJSON(w, http.StatusCreated, order)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		h.respondWithModelError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, order)
}

// UpdateOrder handles PUT /orders/{id}, a full update of the order fields.
// This path deliberately bypasses the lifecycle state machine: the status in
// the body is checked for enum membership only.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	if !h.checkContentType(w, r) {
		return
	}
	id := pathID(r, "id")

	existing, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		h.respondWithModelError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	updated := &models.Order{}
	if err := updated.Deserialize(body); err != nil {
		h.respondWithModelError(w, err)
		return
	}
	updated.ID = id
	updated.Items = existing.Items

	if err := h.store.UpdateOrder(r.Context(), updated); err != nil {
		h.respondWithModelError(w, err)
		return
	}

	h.logger.WithField("order_id", id).Info("Order updated")
	h.broadcast("order_updated", updated)
	h.respondWithJSON(w, http.StatusOK, updated)
}

// DeleteOrder handles DELETE /orders/{id}. Always responds 204; deleting an
// absent order is not an error. Items are cascade-deleted with the order.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")

	if err := h.store.DeleteOrder(r.Context(), id); err != nil {
		h.respondWithModelError(w, err)
		return
	}

	h.logger.WithField("order_id", id).Info("Order deleted")
	h.publishDeleted(id)
	h.broadcast("order_deleted", map[string]int{"order_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// CancelOrder handles PUT /orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, "cancel", models.OrderStatus.Cancel)
}

// PackOrder handles PUT /orders/{id}/packing.
func (h *Handler) PackOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, "packing", models.OrderStatus.Pack)
}

// ShipOrder handles PUT /orders/{id}/ship.
func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, "ship", models.OrderStatus.Ship)
}

// DeliverOrder handles PUT /orders/{id}/deliver.
func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, "deliver", models.OrderStatus.Deliver)
}

// transitionOrder loads the order, applies a guarded lifecycle transition,
// persists the new status, and returns the serialized order. An illegal
// transition responds 409 with the precondition's reason.
func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request, name string,
	transition func(models.OrderStatus) (models.OrderStatus, error)) {
	id := pathID(r, "id")

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		h.respondWithModelError(w, err)
		return
	}

	newStatus, err := transition(order.Status)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"order_id":   id,
			"transition": name,
			"status":     order.Status,
		}).Warn("Illegal lifecycle transition")
		h.respondWithModelError(w, err)
		return
	}

	previous := order.Status
	order.Status = newStatus
	if err := h.store.UpdateOrder(r.Context(), order); err != nil {
		h.respondWithModelError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id":   id,
		"transition": name,
		"from":       previous,
		"to":         newStatus,
	}).Info("Order status changed")

	h.publishStatusChanged(order, previous)
	h.broadcast("order_status_changed", order)
	h.respondWithJSON(w, http.StatusOK, order)
}

// ListItems handles GET /orders/{id}/items with optional product_id and name
// query parameters.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		h.respondWithModelError(w, err)
		return
	}

	items := order.Items

	if raw := r.URL.Query().Get("product_id"); raw != "" {
		productID, err := strconv.Atoi(raw)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "product_id must be an integer")
			return
		}
		items = FilterItemsByProduct(items, productID)
		if len(items) == 0 {
			h.respondWithError(w, http.StatusBadRequest,
				fmt.Sprintf("no items with product_id '%d' found in order '%d'", productID, id))
			return
		}
	}

	if name := r.URL.Query().Get("name"); name != "" {
		items = FilterItemsByName(items, name)
	}

	h.respondWithJSON(w, http.StatusOK, items)
}

// CreateItem handles POST /orders/{id}/items. The owning order must exist;
// the order id in the path wins over any order_id in the body.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	if !h.checkContentType(w, r) {
		return
	}
	id := pathID(r, "id")

	if _, err := h.store.GetOrder(r.Context(), id); err != nil {
		h.respondWithModelError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	item := &models.Item{}
	if err := item.Deserialize(body); err != nil {
		h.respondWithModelError(w, err)
		return
	}
	item.OrderID = id

	if err := h.store.CreateItem(r.Context(), item); err != nil {
		h.respondWithModelError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id": id,
		"item_id":  item.ID,
	}).Info("Item created")

	w.Header().Set("Location", fmt.Sprintf("/orders/%d/items/%d", id, item.ID))
	h.respondWithJSON(w, http.StatusCreated, item)
}

// GetItem handles GET /orders/{id}/items/{item_id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	orderID := pathID(r, "id")
	itemID := pathID(r, "item_id")

	item, err := h.store.GetItem(r.Context(), orderID, itemID)
	if err != nil {
		h.respondWithModelError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, item)
}

// UpdateItem handles PUT /orders/{id}/items/{item_id}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if !h.checkContentType(w, r) {
		return
	}
	orderID := pathID(r, "id")
	itemID := pathID(r, "item_id")

	if _, err := h.store.GetItem(r.Context(), orderID, itemID); err != nil {
		h.respondWithModelError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	item := &models.Item{}
	if err := item.Deserialize(body); err != nil {
		h.respondWithModelError(w, err)
		return
	}
	item.ID = itemID
	item.OrderID = orderID

	if err := h.store.UpdateItem(r.Context(), item); err != nil {
		h.respondWithModelError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /orders/{id}/items/{item_id}. Always 204.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	orderID := pathID(r, "id")
	itemID := pathID(r, "item_id")

	if err := h.store.DeleteItem(r.Context(), orderID, itemID); err != nil {
		h.respondWithModelError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publishCreated(order *models.Order) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishOrderCreated(order); err != nil {
		h.logger.WithError(err).Error("Failed to publish order created event")
	}
}

func (h *Handler) publishStatusChanged(order *models.Order, previous models.OrderStatus) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishOrderStatusChanged(order, previous); err != nil {
		h.logger.WithError(err).Error("Failed to publish order status changed event")
	}
}

func (h *Handler) publishDeleted(orderID int) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishOrderDeleted(orderID); err != nil {
		h.logger.WithError(err).Error("Failed to publish order deleted event")
	}
}

func (h *Handler) broadcast(messageType string, data interface{}) {
	if h.wsHub != nil {
		h.wsHub.Broadcast(messageType, data, "orders-api")
	}
}

// checkContentType enforces application/json on endpoints with a body.
func (h *Handler) checkContentType(w http.ResponseWriter, r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "application/json" || strings.HasPrefix(contentType, "application/json;") {
		return true
	}
	h.logger.WithField("content_type", contentType).Error("Invalid Content-Type")
	h.respondWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
	return false
}

func (h *Handler) respondWithModelError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	var notFoundErr *models.NotFoundError
	var conflictErr *models.ConflictError

	switch {
	case errors.As(err, &validationErr):
		h.respondWithError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		h.respondWithError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		h.respondWithError(w, http.StatusConflict, conflictErr.Error())
	default:
		h.logger.WithError(err).Error("Unexpected error")
		h.respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"status":  code,
		"error":   http.StatusText(code),
		"message": message,
	})
}

func pathID(r *http.Request, key string) int {
	id, _ := strconv.Atoi(mux.Vars(r)[key])
	return id
}
