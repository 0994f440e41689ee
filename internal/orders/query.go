package orders

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/CSCI-GA-2820-SP24-003/orders/pkg/models"
)

// OrderFilters is the conjunctive filter/sort set for GET /orders. Every
// filter is optional; absent filters match everything.
type OrderFilters struct {
	Status      *models.OrderStatus
	StartDate   *models.Date
	EndDate     *models.Date
	MinTotal    float64
	MaxTotal    float64
	CustomerIDs map[int]bool
	SortBy      string

	// RawCustomerID keeps the caller's original value for error messages.
	RawCustomerID string
}

// ParseOrderFilters reads the query parameters of GET /orders. Malformed
// values fail with a ValidationError.
func ParseOrderFilters(values url.Values) (*OrderFilters, error) {
	filters := &OrderFilters{
		MinTotal: 0,
		MaxTotal: math.Inf(1),
		SortBy:   values.Get("sort_by"),
	}

	if raw := values.Get("status"); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			return nil, err
		}
		filters.Status = &status
	}

	if raw := values.Get("order-start"); raw != "" {
		start, err := models.ParseDate(raw)
		if err != nil {
			return nil, models.NewValidationError("order-start must be an ISO-8601 date", err)
		}
		filters.StartDate = &start
	}

	if raw := values.Get("order-end"); raw != "" {
		end, err := models.ParseDate(raw)
		if err != nil {
			return nil, models.NewValidationError("order-end must be an ISO-8601 date", err)
		}
		filters.EndDate = &end
	}

	if raw := values.Get("total-min"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, models.NewValidationError("total-min must be a number", err)
		}
		filters.MinTotal = min
	}

	if raw := values.Get("total-max"); raw != "" {
		max, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, models.NewValidationError("total-max must be a number", err)
		}
		filters.MaxTotal = max
	}

	if raw := values.Get("customer-id"); raw != "" {
		filters.RawCustomerID = raw
		filters.CustomerIDs = map[int]bool{}
		for _, token := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(token))
			if err != nil {
				return nil, models.NewValidationError(
					fmt.Sprintf("customer-id must be an integer or a comma-separated list of integers, got '%s'", raw), err)
			}
			filters.CustomerIDs[id] = true
		}
	}

	return filters, nil
}

// Apply filters and sorts the order collection. Filters compose with AND.
// sort_by=total_amount sorts descending by total_amount; anything else sorts
// descending by order_date. The order is always descending.
func (f *OrderFilters) Apply(orders []*models.Order) []*models.Order {
	matched := []*models.Order{}
	for _, order := range orders {
		if f.matches(order) {
			matched = append(matched, order)
		}
	}

	if f.SortBy == "total_amount" {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].TotalAmount > matched[j].TotalAmount
		})
	} else {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].OrderDate.After(matched[j].OrderDate.Time)
		})
	}
	return matched
}

func (f *OrderFilters) matches(order *models.Order) bool {
	if f.Status != nil && order.Status != *f.Status {
		return false
	}
	if f.StartDate != nil && order.OrderDate.Before(f.StartDate.Time) {
		return false
	}
	if f.EndDate != nil && order.OrderDate.After(f.EndDate.Time) {
		return false
	}
	if order.TotalAmount < f.MinTotal || order.TotalAmount > f.MaxTotal {
		return false
	}
	if f.CustomerIDs != nil && !f.CustomerIDs[order.CustomerID] {
		return false
	}
	return true
}

// FilterItemsByProduct returns the items with an exact product_id match.
func FilterItemsByProduct(items []models.Item, productID int) []models.Item {
	matched := []models.Item{}
	for _, item := range items {
		if item.ProductID == productID {
			matched = append(matched, item)
		}
	}
	return matched
}

// FilterItemsByName returns the items whose name contains the given substring,
// case-insensitively.
func FilterItemsByName(items []models.Item, name string) []models.Item {
	needle := strings.ToLower(name)
	matched := []models.Item{}
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			matched = append(matched, item)
		}
	}
	return matched
}
