package payments

import (
	"context"
	"time"

	"heliox/db"
	"heliox/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// OrderStore is the slice of order persistence the payment flow needs.
type OrderStore interface {
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	// StampReference records the latest reference on the order. Called
	// only after the gateway accepted the initiation.
	StampReference(ctx context.Context, orderID, reference string) error
	// MarkPaidByReference applies the terminal paid transition as a
	// single conditional update keyed on the reference. Safe to call
	// any number of times; matched is false when no order carries the
	// reference.
	MarkPaidByReference(ctx context.Context, reference string) (matched bool, err error)
}

// AttemptStore persists the audit trail of initiations.
type AttemptStore interface {
	Insert(ctx context.Context, attempt models.PaymentAttempt) error
	Resolve(ctx context.Context, reference, status string) error
}

// ErrNotFound mirrors mongo.ErrNoDocuments for callers that should not
// care about the driver.
var ErrNotFound = mongo.ErrNoDocuments

type mongoOrders struct{}

func (mongoOrders) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := db.OrdersCollection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (mongoOrders) StampReference(ctx context.Context, orderID, reference string) error {
	_, err := db.OrdersCollection.UpdateOne(ctx,
		bson.M{"orderId": orderID},
		bson.M{"$set": bson.M{
			"paymentReference": reference,
			"updatedAt":        time.Now(),
		}},
	)
	return err
}

func (mongoOrders) MarkPaidByReference(ctx context.Context, reference string) (bool, error) {
	res, err := db.OrdersCollection.UpdateOne(ctx,
		bson.M{"paymentReference": reference},
		bson.M{"$set": bson.M{
			"paymentStatus": models.PaymentPaid,
			"updatedAt":     time.Now(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

type mongoAttempts struct{}

func (mongoAttempts) Insert(ctx context.Context, attempt models.PaymentAttempt) error {
	_, err := db.PaymentsCollection.InsertOne(ctx, attempt)
	return err
}

func (mongoAttempts) Resolve(ctx context.Context, reference, status string) error {
	// Terminal statuses stick: never transition out of success/failed.
	_, err := db.PaymentsCollection.UpdateOne(ctx,
		bson.M{"reference": reference, "status": models.AttemptInitiated},
		bson.M{"$set": bson.M{
			"status":     status,
			"resolvedAt": time.Now(),
		}},
	)
	return err
}
