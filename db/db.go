package db

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection        *mongo.Collection
	CatalogCollection     *mongo.Collection
	UsageLogsCollection   *mongo.Collection
	OrdersCollection      *mongo.Collection
	PaymentsCollection    *mongo.Collection
	IdempotencyCollection *mongo.Collection
	Client                *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	mongoURL := os.Getenv("MONGO_URL")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	ClientOptions := options.Client().ApplyURI(mongoURL)
	var err error
	Client, err = mongo.Connect(context.TODO(), ClientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	UserCollection = Client.Database("helioxdb").Collection("users")
	CatalogCollection = Client.Database("helioxdb").Collection("catalog")
	UsageLogsCollection = Client.Database("helioxdb").Collection("usagelogs")
	OrdersCollection = Client.Database("helioxdb").Collection("orders")
	PaymentsCollection = Client.Database("helioxdb").Collection("payments")
	IdempotencyCollection = Client.Database("helioxdb").Collection("idempotency")
}

// EnsureIndexes creates the unique and TTL indexes the payment flow
// depends on. paymentReference is sparse so orders without a reference
// don't collide on null.
func EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := OrdersCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"paymentReference": 1},
		Options: options.Index().SetUnique(true).SetSparse(true).SetName("unique_payment_reference"),
	})
	if err != nil {
		return err
	}

	_, err = PaymentsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"reference": 1},
		Options: options.Index().SetUnique(true).SetName("unique_reference"),
	})
	if err != nil {
		return err
	}

	_, err = UserCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"username": 1},
			Options: options.Index().SetUnique(true).SetName("unique_username"),
		},
		{
			Keys:    bson.M{"email": 1},
			Options: options.Index().SetUnique(true).SetName("unique_email"),
		},
	})
	return err
}

// IsDuplicateKeyError reports whether err is a Mongo unique-index
// violation (code 11000).
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(mongo.WriteException); ok {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
