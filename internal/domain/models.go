package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalogue entry of the store.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Unit  string          `json:"unit,omitempty"`
	Price decimal.Decimal `json:"price"`
	Stock int64           `json:"stock"`
}

// Address is a delivery address saved by a customer.
type Address struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	AddressType   string `json:"address_type"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "Placed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:  {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentMode is how the customer pays for an order.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "Cash"
	PaymentModeOnline PaymentMode = "Online"
)

func (m PaymentMode) Valid() bool {
	return m == PaymentModeCash || m == PaymentModeOnline
}

// GatewayRef holds the identifiers the payment gateway returned for an
// online payment. It is only ever set on Online orders.
type GatewayRef struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
}

// OrderItem is a stored order line. Price is the unit price captured when
// the order was placed.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is the stored order aggregate.
type Order struct {
	ID          string      `json:"id"`
	AddressID   string      `json:"address_id"`
	Items       []OrderItem `json:"items"`
	Status      OrderStatus `json:"status"`
	PaymentMode PaymentMode `json:"payment_mode"`
	Gateway     *GatewayRef `json:"gateway,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ProductSummary is the part of a product a receipt needs.
type ProductSummary struct {
	Name string `json:"name"`
}

// ReceiptItem is an order line with its product reference resolved.
// Product is nil when the referenced product could not be found.
type ReceiptItem struct {
	ProductID string          `json:"product_id"`
	Product   *ProductSummary `json:"product,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
}

// Subtotal is price times quantity.
func (it ReceiptItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(it.Quantity))
}

// ReceiptOrder is an order with its address and product names joined in.
// Address is nil when the referenced address could not be found.
type ReceiptOrder struct {
	ID          string        `json:"id"`
	Status      OrderStatus   `json:"status"`
	PaymentMode PaymentMode   `json:"payment_mode"`
	Gateway     *GatewayRef   `json:"gateway,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Address     *Address      `json:"address,omitempty"`
	Items       []ReceiptItem `json:"items"`
}
