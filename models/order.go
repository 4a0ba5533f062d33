package models

import "time"

// Order status values. status and paymentStatus are independent axes:
// an order can be pending/paid at the same time.
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderInstalling = "installing"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"

	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"

	MethodCard        = "card"
	MethodInstallment = "installment"
)

// OrderItem is one line item of an order.
type OrderItem struct {
	ItemID   string `json:"itemId" bson:"itemId"`
	Quantity int    `json:"quantity" bson:"quantity"`
	Warranty string `json:"warranty,omitempty" bson:"warranty,omitempty"`
}

// Address is the structured delivery/installation address.
type Address struct {
	Street     string `json:"street" bson:"street"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	Country    string `json:"country" bson:"country"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
}

// AmountBreakdown carries the price split. TotalAmount must equal
// ItemsAndInstallation + VAT; enforced at order creation.
type AmountBreakdown struct {
	ItemsAndInstallation float64 `json:"itemsAndInstallation" bson:"itemsAndInstallation"`
	VAT                  float64 `json:"vat" bson:"vat"`
	TotalAmount          float64 `json:"totalAmount" bson:"totalAmount"`
}

// Order is a finalized solar setup order. Amounts are stored in major
// currency units; only the gateway boundary converts to minor units.
type Order struct {
	OrderID          string          `json:"orderId" bson:"orderId"`
	UserID           string          `json:"userId" bson:"userId"`
	Items            []OrderItem     `json:"items" bson:"items"`
	Amount           AmountBreakdown `json:"amount" bson:"amount"`
	Address          Address         `json:"address" bson:"address"`
	PaymentMethod    string          `json:"paymentMethod" bson:"paymentMethod"`
	PaymentReference string          `json:"paymentReference,omitempty" bson:"paymentReference,omitempty"`
	Status           string          `json:"status" bson:"status"`
	PaymentStatus    string          `json:"paymentStatus" bson:"paymentStatus"`
	CreatedAt        time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt" bson:"updatedAt"`
}
