package models

import "time"

// Payment attempt states. success/failed are terminal.
const (
	AttemptInitiated = "initiated"
	AttemptSuccess   = "success"
	AttemptFailed    = "failed"
)

// PaymentAttempt is one initiation against the gateway. A fresh
// reference is minted per attempt; an order points at its latest one.
type PaymentAttempt struct {
	Reference   string    `json:"reference" bson:"reference"`
	OrderID     string    `json:"orderId" bson:"orderId"`
	PlanID      string    `json:"planId,omitempty" bson:"planId,omitempty"`
	Email       string    `json:"email" bson:"email"`
	Amount      float64   `json:"amount" bson:"amount"`
	Status      string    `json:"status" bson:"status"`
	InitiatedAt time.Time `json:"initiatedAt" bson:"initiatedAt"`
	ResolvedAt  time.Time `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

// IdempotencyRecord represents an idempotency key record stored in Mongo.
type IdempotencyRecord struct {
	Key         string                 `bson:"key" json:"key"`
	Method      string                 `bson:"method" json:"method"`
	Path        string                 `bson:"path" json:"path"`
	UserID      string                 `bson:"userid" json:"userid"`
	RequestHash string                 `bson:"request_hash" json:"request_hash"`
	Response    map[string]interface{} `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time              `bson:"expires_at" json:"expires_at"`
}
