package domain

import "strings"

// OrderStatusPaid is the CRM status for a settled order. Only paid orders
// participate in attribution.
const OrderStatusPaid = "PAID"

// LineItem is a single purchased product on an order.
type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Order is a purchase fetched from the CRM order source. Orders are
// read-only snapshots; they are grouped by LowerCaseEmail to form a Customer.
type Order struct {
	Email          string     `json:"email"`
	LowerCaseEmail string     `json:"lower_case_email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	TenantID       string     `json:"tenant_id"`
	Status         string     `json:"status"`
	LineItems      []LineItem `json:"order_items"`
}

// Paid reports whether the order has settled.
func (o Order) Paid() bool { return o.Status == OrderStatusPaid }

// FilterPaid returns only the paid orders, preserving order.
func FilterPaid(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Paid() {
			out = append(out, o)
		}
	}
	return out
}

// Stats summarizes a customer's cart for the reporting day.
type Stats struct {
	Sales   int     `json:"roassales"`
	Revenue float64 `json:"roasrevenue"`
}

// Customer aggregates the orders sharing one normalized email.
type Customer struct {
	Email          string     `json:"email"`
	LowerCaseEmail string     `json:"lower_case_email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	TenantID       string     `json:"tenant_id"`
	Cart           []LineItem `json:"cart"`
	Stats          Stats      `json:"stats"`
}

// CartStats computes order count and revenue for a flattened cart.
// Revenue is the sum of line-item prices.
func CartStats(cart []LineItem) Stats {
	s := Stats{Sales: len(cart)}
	for _, item := range cart {
		s.Revenue += item.Price
	}
	return s
}

// GroupCustomers groups orders by normalized email and collapses each group
// into a Customer. Scalar fields come from the first order in a group; line
// items are flattened into the cart.
func GroupCustomers(orders []Order) []Customer {
	grouped := make(map[string][]Order)
	var keys []string
	for _, o := range orders {
		key := o.LowerCaseEmail
		if key == "" {
			key = strings.ToLower(o.Email)
		}
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], o)
	}

	customers := make([]Customer, 0, len(keys))
	for _, key := range keys {
		group := grouped[key]
		first := group[0]
		var cart []LineItem
		for _, o := range group {
			cart = append(cart, o.LineItems...)
		}
		customers = append(customers, Customer{
			Email:          first.Email,
			LowerCaseEmail: key,
			FirstName:      first.FirstName,
			LastName:       first.LastName,
			TenantID:       first.TenantID,
			Cart:           cart,
			Stats:          CartStats(cart),
		})
	}
	return customers
}
