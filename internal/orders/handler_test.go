package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/CSCI-GA-2820-SP24-003/orders/pkg/models"
)

// mockStore is an in-memory OrderStore for handler tests.
type mockStore struct {
	orders     map[int]*models.Order
	nextOrder  int
	nextItem   int
}

func newMockStore() *mockStore {
	return &mockStore{
		orders:    map[int]*models.Order{},
		nextOrder: 1,
		nextItem:  1,
	}
}

func (m *mockStore) CreateOrder(_ context.Context, order *models.Order) error {
	order.ID = m.nextOrder
	m.nextOrder++
	for i := range order.Items {
		order.Items[i].ID = m.nextItem
		order.Items[i].OrderID = order.ID
		m.nextItem++
	}
	copied := *order
	copied.Items = append([]models.Item{}, order.Items...)
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockStore) GetOrder(_ context.Context, id int) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "Order", ID: id}
	}
	copied := *order
	copied.Items = append([]models.Item{}, order.Items...)
	return &copied, nil
}

func (m *mockStore) ListOrders(_ context.Context) ([]*models.Order, error) {
	ids := make([]int, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	orders := make([]*models.Order, 0, len(ids))
	for _, id := range ids {
		order, _ := m.GetOrder(context.Background(), id)
		orders = append(orders, order)
	}
	return orders, nil
}

func (m *mockStore) UpdateOrder(_ context.Context, order *models.Order) error {
	existing, ok := m.orders[order.ID]
	if !ok {
		return &models.NotFoundError{Resource: "Order", ID: order.ID}
	}
	copied := *order
	copied.Items = existing.Items
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockStore) DeleteOrder(_ context.Context, id int) error {
	delete(m.orders, id)
	return nil
}

func (m *mockStore) CreateItem(_ context.Context, item *models.Item) error {
	order, ok := m.orders[item.OrderID]
	if !ok {
		return models.NewValidationError("failed to save item", fmt.Errorf("order %d does not exist", item.OrderID))
	}
	item.ID = m.nextItem
	m.nextItem++
	order.Items = append(order.Items, *item)
	return nil
}

func (m *mockStore) GetItem(_ context.Context, orderID, itemID int) (*models.Item, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "Item", ID: itemID}
	}
	for _, item := range order.Items {
		if item.ID == itemID {
			copied := item
			return &copied, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "Item", ID: itemID}
}

func (m *mockStore) UpdateItem(_ context.Context, item *models.Item) error {
	order, ok := m.orders[item.OrderID]
	if !ok {
		return &models.NotFoundError{Resource: "Item", ID: item.ID}
	}
	for i := range order.Items {
		if order.Items[i].ID == item.ID {
			order.Items[i] = *item
			return nil
		}
	}
	return &models.NotFoundError{Resource: "Item", ID: item.ID}
}

func (m *mockStore) DeleteItem(_ context.Context, orderID, itemID int) error {
	order, ok := m.orders[orderID]
	if !ok {
		return nil
	}
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			order.Items = append(order.Items[:i], order.Items[i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestRouter() (*mux.Router, *mockStore) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := newMockStore()
	handler := NewHandler(store, logger)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router, store
}

func orderBody(customerID int, total float64, status string) []byte {
	body := map[string]interface{}{
		"customer_id":      customerID,
		"order_date":       "2024-03-15",
		"shipping_address": "123 Main St",
		"total_amount":     total,
		"payment_method":   "credit_card",
		"shipping_cost":    4.99,
		"expected_date":    "2024-03-20",
		"order_notes":      "",
	}
	if status != "" {
		body["status"] = status
	}
	data, _ := json.Marshal(body)
	return data
}

func itemBody(productID int, name string) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"product_id":  productID,
		"name":        name,
		"quantity":    1,
		"unit_price":  9.99,
		"total_price": 9.99,
		"description": "a test item",
	})
	return data
}

func doRequest(router *mux.Router, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func createOrder(t *testing.T, router *mux.Router, customerID int, total float64, status string) models.Order {
	t.Helper()
	resp := doRequest(router, "POST", "/orders", orderBody(customerID, total, status))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create order returned %d: %s", resp.Code, resp.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil {
		t.Fatalf("failed to decode created order: %v", err)
	}
	return order
}

func errorMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return payload.Message
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter()
	resp := doRequest(router, "GET", "/health", nil)
	if resp.Code != http.StatusOK {
		t.Errorf("health check returned %d", resp.Code)
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	router, _ := newTestRouter()

	resp := doRequest(router, "POST", "/orders", orderBody(7, 59.90, ""))
	if resp.Code != http.StatusCreated {
		t.Fatalf("got %d, want 201: %s", resp.Code, resp.Body.String())
	}
	location := resp.Header().Get("Location")
	if location == "" {
		t.Error("Location header missing")
	}

	var order models.Order
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil {
		t.Fatal(err)
	}
	if order.ID == 0 {
		t.Error("order id was not assigned")
	}
	if order.Status != models.StatusStarted {
		t.Errorf("status = %s, want STARTED", order.Status)
	}
	if location != fmt.Sprintf("/orders/%d", order.ID) {
		t.Errorf("Location = %q", location)
	}
}

func TestCreateOrderWrongContentType(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest("POST", "/orders", bytes.NewReader(orderBody(1, 10, "")))
	req.Header.Set("Content-Type", "text/plain")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnsupportedMediaType {
		t.Errorf("got %d, want 415", recorder.Code)
	}
}

func TestCreateOrderBadBody(t *testing.T) {
	router, _ := newTestRouter()

	resp := doRequest(router, "POST", "/orders", []byte("this is not json"))
	if resp.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", resp.Code)
	}

	resp = doRequest(router, "POST", "/orders", []byte(`{"customer_id": 1}`))
	if resp.Code != http.StatusBadRequest {
		t.Errorf("missing keys: got %d, want 400", resp.Code)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	router, _ := newTestRouter()
	resp := doRequest(router, "GET", "/orders/999", nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", resp.Code)
	}
}

func TestUpdateOrder(t *testing.T) {
	router, _ := newTestRouter()
	order := createOrder(t, router, 1, 10, "")

	// A raw update may set any valid status without a transition check.
	resp := doRequest(router, "PUT", fmt.Sprintf("/orders/%d", order.ID), orderBody(1, 10, "DELIVERED"))
	if resp.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var updated models.Order
	if err := json.Unmarshal(resp.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.StatusDelivered {
		t.Errorf("status = %s, want DELIVERED", updated.Status)
	}

	resp = doRequest(router, "PUT", "/orders/999", orderBody(1, 10, ""))
	if resp.Code != http.StatusNotFound {
		t.Errorf("update of absent order: got %d, want 404", resp.Code)
	}
}

func TestDeleteOrderIdempotent(t *testing.T) {
	router, _ := newTestRouter()
	order := createOrder(t, router, 1, 10, "")

	resp := doRequest(router, "DELETE", fmt.Sprintf("/orders/%d", order.ID), nil)
	if resp.Code != http.StatusNoContent {
		t.Errorf("got %d, want 204", resp.Code)
	}

	// Deleting an absent order is not an error.
	resp = doRequest(router, "DELETE", fmt.Sprintf("/orders/%d", order.ID), nil)
	if resp.Code != http.StatusNoContent {
		t.Errorf("second delete: got %d, want 204", resp.Code)
	}

	resp = doRequest(router, "GET", fmt.Sprintf("/orders/%d", order.ID), nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("deleted order still readable: got %d", resp.Code)
	}
}

func TestDeleteOrderCascadesItems(t *testing.T) {
	router, _ := newTestRouter()
	order := createOrder(t, router, 1, 10, "")

	resp := doRequest(router, "POST", fmt.Sprintf("/orders/%d/items", order.ID), itemBody(100, "mouse"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create item returned %d", resp.Code)
	}
	var item models.Item
	if err := json.Unmarshal(resp.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}

	doRequest(router, "DELETE", fmt.Sprintf("/orders/%d", order.ID), nil)

	resp = doRequest(router, "GET", fmt.Sprintf("/orders/%d/items/%d", order.ID, item.ID), nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("item survived order deletion: got %d, want 404", resp.Code)
	}
}

func TestCancelOrderIdempotent(t *testing.T) {
	router, _ := newTestRouter()
	order := createOrder(t, router, 1, 10, "")

	resp := doRequest(router, "PUT", fmt.Sprintf("/orders/%d/cancel", order.ID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("cancel returned %d: %s", resp.Code, resp.Body.String())
	}
	var cancelled models.Order
	if err := json.Unmarshal(resp.Body.Bytes(), &cancelled); err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}

	// A retried cancel must not fail merely because it already landed.
	resp = doRequest(router, "PUT", fmt.Sprintf("/orders/%d/cancel", order.ID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("second cancel returned %d", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &cancelled); err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status after re-cancel = %s, want CANCELLED", cancelled.Status)
	}
}

func TestCancelDeliveredOrderConflict(t *testing.T) {
	router, _ := newTestRouter()
	order := createOrder(t, router, 1, 10, "DELIVERED")

	resp := doRequest(router, "PUT", fmt.Sprintf("/orders/%d/cancel", order.ID), nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("got %d, want 409", resp.Code)
	}
	want := "Orders that have been delivered cannot be cancelled"
	if got := errorMessage(t, resp); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestTransitionOrderNotFound(t *testing.T) {
	router, _ := newTestRouter()
	for _, path := range []string{"cancel", "packing", "ship", "deliver"} {
		resp := doRequest(router, "PUT", "/orders/999/"+path, nil)
		if resp.Code != http.StatusNotFound {
			t.Errorf("%s of absent order: got %d, want 404", path, resp.Code)
		}
	}
}

func TestPackOrderPreconditions(t *testing.T) {
	router, _ := newTestRouter()

	started := createOrder(t, router, 1, 10, "")
	resp := doRequest(router, "PUT", fmt.Sprintf("/orders/%d/packing", started.ID), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("pack from STARTED: got %d, want 200", resp.Code)
	}

	// Packing an order in PACKING succeeds (idempotent).
	resp = doRequest(router, "PUT", fmt.Sprintf("/orders/%d/packing", started.ID), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("pack from PACKING: got %d, want 200", resp.Code)
	}

	shipping := createOrder(t, router, 1, 10, "SHIPPING")
	resp = doRequest(router, "PUT", fmt.Sprintf("/orders/%d/packing", shipping.ID), nil)
	if resp.Code != http.StatusConflict {
		t.Errorf("pack from SHIPPING: got %d, want 409", resp.Code)
	}
}

func TestShipOrderPreconditions(t *testing.T) {
	router, _ := newTestRouter()

	packing := createOrder(t, router, 1, 10, "PACKING")
	resp := doRequest(router, "PUT", fmt.Sprintf("/orders/%d/ship", packing.ID), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("ship from PACKING: got %d, want 200", resp.Code)
	}

	cancelled := createOrder(t, router, 1, 10, "CANCELLED")
	resp = doRequest(router, "PUT", fmt.Sprintf("/orders/%d/ship", cancelled.ID), nil)
	if resp.Code != http.StatusConflict {
		t.Errorf("ship from CANCELLED: got %d, want 409", resp.Code)
	}
}

func TestDeliverOrderPreconditions(t *testing.T) {
	router, _ := newTestRouter()

	started := createOrder(t, router, 1, 10, "")
	resp := doRequest(router, "PUT", fmt.Sprintf("/orders/%d/deliver", started.ID), nil)
	if resp.Code != http.StatusConflict {
		t.Errorf("deliver from STARTED: got %d, want 409", resp.Code)
	}

	shipping := createOrder(t, router, 1, 10, "SHIPPING")
	resp = doRequest(router, "PUT", fmt.Sprintf("/orders/%d/deliver", shipping.ID), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("deliver from SHIPPING: got %d, want 200", resp.Code)
	}

	// Delivering a delivered order succeeds (idempotent).
	resp = doRequest(router, "PUT", fmt.Sprintf("/orders/%d/deliver", shipping.ID), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("deliver from DELIVERED: got %d, want 200", resp.Code)
	}
}

func TestListOrdersAmountRangeScenario(t *testing.T) {
	router, _ := newTestRouter()
	for _, total := range []float64{30, 20, 50, 10, 40} {
		createOrder(t, router, 1, total, "")
	}

	resp := doRequest(router, "GET", "/orders?total-min=15&total-max=40&sort_by=total_amount", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("got %d: %s", resp.Code, resp.Body.String())
	}

	var results []models.Order
	if err := json.Unmarshal(resp.Body.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d orders, want 3", len(results))
	}
	wantTotals := []float64{40, 30, 20}
	for i, want := range wantTotals {
		if results[i].TotalAmount != want {
			t.Errorf("results[%d].total_amount = %f, want %f", i, results[i].TotalAmount, want)
		}
	}
}

func TestListOrdersCustomerFilter(t *testing.T) {
	router, _ := newTestRouter()
	createOrder(t, router, 10, 10, "")
	createOrder(t, router, 20, 10, "")

	resp := doRequest(router, "GET", "/orders?customer-id=10", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("got %d", resp.Code)
	}
	var results []models.Order
	if err := json.Unmarshal(resp.Body.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].CustomerID != 10 {
		t.Errorf("customer filter returned %v", results)
	}

	// No orders for the customer is a caller error, not an empty list.
	resp = doRequest(router, "GET", "/orders?customer-id=999", nil)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("unknown customer: got %d, want 400", resp.Code)
	}

	resp = doRequest(router, "GET", "/orders?customer-id=ten", nil)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("malformed customer-id: got %d, want 400", resp.Code)
	}
}

func TestCreateItem(t *testing.T) {
	router, _ := newTestRouter()
	order := createOrder(t, router, 1, 10, "")

	resp := doRequest(router, "POST", fmt.Sprintf("/orders/%d/items", order.ID), itemBody(100, "mouse"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("got %d, want 201: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("Location") == "" {
		t.Error("Location header missing")
	}

	var item models.Item
	if err := json.Unmarshal(resp.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}
	if item.OrderID != order.ID {
		t.Errorf("item.order_id = %d, want %d", item.OrderID, order.ID)
	}
	if item.ID == 0 {
		t.Error("item id was not assigned")
	}
}

func TestCreateItemOrderNotFound(t *testing.T) {
	router, _ := newTestRouter()
	resp := doRequest(router, "POST", "/orders/999/items", itemBody(100, "mouse"))
	if resp.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", resp.Code)
	}
}

func TestListItemsFilters(t *testing.T) {
	router, _ := newTestRouter()
	order := createOrder(t, router, 1, 10, "")
	doRequest(router, "POST", fmt.Sprintf("/orders/%d/items", order.ID), itemBody(100, "Wireless Mouse"))
	doRequest(router, "POST", fmt.Sprintf("/orders/%d/items", order.ID), itemBody(200, "USB Keyboard"))

	resp := doRequest(router, "GET", fmt.Sprintf("/orders/%d/items?product_id=100", order.ID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("got %d", resp.Code)
	}
	var items []models.Item
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ProductID != 100 {
		t.Errorf("product filter returned %v", items)
	}

	// No product match is a caller error.
	resp = doRequest(router, "GET", fmt.Sprintf("/orders/%d/items?product_id=999", order.ID), nil)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("unknown product: got %d, want 400", resp.Code)
	}

	// No name match is a normal empty list.
	resp = doRequest(router, "GET", fmt.Sprintf("/orders/%d/items?name=monitor", order.ID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("name filter got %d", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}

	resp = doRequest(router, "GET", fmt.Sprintf("/orders/%d/items?name=wireless", order.ID), nil)
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("substring match got %d items, want 1", len(items))
	}
}

func TestItemCRUD(t *testing.T) {
	router, _ := newTestRouter()
	order := createOrder(t, router, 1, 10, "")

	resp := doRequest(router, "POST", fmt.Sprintf("/orders/%d/items", order.ID), itemBody(100, "mouse"))
	var item models.Item
	if err := json.Unmarshal(resp.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}

	resp = doRequest(router, "GET", fmt.Sprintf("/orders/%d/items/%d", order.ID, item.ID), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("get item: got %d", resp.Code)
	}

	resp = doRequest(router, "PUT", fmt.Sprintf("/orders/%d/items/%d", order.ID, item.ID), itemBody(100, "better mouse"))
	if resp.Code != http.StatusOK {
		t.Fatalf("update item: got %d", resp.Code)
	}
	var updated models.Item
	if err := json.Unmarshal(resp.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Name != "better mouse" {
		t.Errorf("name = %q after update", updated.Name)
	}

	resp = doRequest(router, "DELETE", fmt.Sprintf("/orders/%d/items/%d", order.ID, item.ID), nil)
	if resp.Code != http.StatusNoContent {
		t.Errorf("delete item: got %d", resp.Code)
	}

	resp = doRequest(router, "GET", fmt.Sprintf("/orders/%d/items/%d", order.ID, item.ID), nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("deleted item still readable: got %d", resp.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter()
	resp := doRequest(router, "PATCH", "/orders", nil)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Errorf("got %d, want 405", resp.Code)
	}
}
