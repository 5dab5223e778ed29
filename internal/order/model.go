package order

import (
	"time"
)

type OrderStatus string

const (
	StatusNew        OrderStatus = "new"
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRejected   OrderStatus = "rejected"
	StatusApproved   OrderStatus = "approved"
)

var allStatuses = map[OrderStatus]bool{
	StatusNew:        true,
	StatusPending:    true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
	StatusRejected:   true,
	StatusApproved:   true,
}

// IsValid reports whether s is one of the recognized statuses.
func (s OrderStatus) IsValid() bool {
	return allStatuses[s]
}

// IsTerminal reports whether the order can never leave this state.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRejected
}

// CanCancel reports whether cancellation is still allowed from this state.
// Once goods have shipped, or the order has ended in a terminal state,
// cancellation is off the table.
func (s OrderStatus) CanCancel() bool {
	return s != StatusShipped && !s.IsTerminal()
}

// OrderItem is an immutable snapshot of a product at purchase time.
// Catalog edits after checkout never change a placed order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentResult is what the gateway told us about the settled payment.
type PaymentResult struct {
	TransactionID string    `json:"transactionId"`
	Status        string    `json:"status"`
	UpdateTime    time.Time `json:"updateTime"`
	EmailAddress  string    `json:"emailAddress,omitempty"`
}

type Order struct {
	ID              int64           `json:"-"`
	OrderID         string          `json:"orderId"`
	UserID          string          `json:"userId"`
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
	ItemsPrice      float64         `json:"itemsPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	Status          OrderStatus     `json:"status"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	ReceiptURL      string          `json:"receiptUrl,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
