package orders

import (
	"context"
	"time"

	"heliox/db"
	"heliox/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Store is the slice of order persistence the checkout flow needs.
type Store interface {
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	// CompleteIfPaid marks the order completed in one conditional
	// update carrying both the payment gate and the terminal-state
	// guard. matched is false when the order is unpaid, cancelled or
	// missing.
	CompleteIfPaid(ctx context.Context, orderID string) (matched bool, err error)
}

type mongoStore struct{}

func (mongoStore) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := db.OrdersCollection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (mongoStore) CompleteIfPaid(ctx context.Context, orderID string) (bool, error) {
	res, err := db.OrdersCollection.UpdateOne(ctx,
		bson.M{
			"orderId":       orderID,
			"paymentStatus": models.PaymentPaid,
			"status":        bson.M{"$ne": models.OrderCancelled},
		},
		bson.M{"$set": bson.M{"status": models.OrderCompleted, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

var store Store = mongoStore{}
