package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"heliox/db"
	"heliox/metrics"
	"heliox/models"
	"heliox/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type createOrderRequest struct {
	Items         []models.OrderItem     `json:"items"`
	Amount        models.AmountBreakdown `json:"amount"`
	Address       models.Address         `json:"address"`
	PaymentMethod string                 `json:"paymentMethod"`
}

// validateCreate enforces the order invariants before any write:
// at least one line item with quantity >= 1, a usable address, a known
// payment method, and a consistent amount breakdown.
func validateCreate(req createOrderRequest) error {
	if len(req.Items) == 0 {
		return errors.New("at least one item is required")
	}
	for i, it := range req.Items {
		if it.ItemID == "" {
			return fmt.Errorf("item %d is missing itemId", i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("item %d must have quantity >= 1", i)
		}
	}
	if req.Address.Street == "" || req.Address.City == "" || req.Address.State == "" || req.Address.Country == "" {
		return errors.New("address requires street, city, state and country")
	}
	if req.PaymentMethod != models.MethodCard && req.PaymentMethod != models.MethodInstallment {
		return errors.New("paymentMethod must be card or installment")
	}
	if req.Amount.ItemsAndInstallation < 0 || req.Amount.VAT < 0 {
		return errors.New("amounts must be non-negative")
	}
	if math.Abs(req.Amount.TotalAmount-(req.Amount.ItemsAndInstallation+req.Amount.VAT)) > 1e-9 {
		return errors.New("totalAmount must equal itemsAndInstallation + vat")
	}
	return nil
}

// validTransition reports whether an order status change is legal.
// The fulfillment track moves strictly forward; cancelled is reachable
// from every non-terminal state.
func validTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch to {
	case models.OrderConfirmed:
		return from == models.OrderPending
	case models.OrderInstalling:
		return from == models.OrderConfirmed
	case models.OrderCompleted:
		return from == models.OrderInstalling
	case models.OrderCancelled:
		return from != models.OrderCompleted && from != models.OrderCancelled
	}
	return false
}

// CreateOrder persists a new order in pending/pending state.
// POST /api/orders/order
func CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateCreate(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	order := models.Order{
		OrderID:       utils.GetUUID(),
		UserID:        userID,
		Items:         req.Items,
		Amount:        req.Amount,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := db.OrdersCollection.InsertOne(r.Context(), order); err != nil {
		log.Printf("CreateOrder: insert failed: %v", err)
		utils.RespondWithInternalError(w, err)
		return
	}

	metrics.OrdersTotal.WithLabelValues(order.PaymentMethod).Inc()
	utils.RespondWithJSON(w, http.StatusCreated, order)
}

// GetOrder returns one order; only its owner or an admin may read it.
// GET /api/orders/order/:orderId
func GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	orderID := ps.ByName("orderId")

	var order models.Order
	err := db.OrdersCollection.FindOne(r.Context(), bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("GetOrder: lookup failed for %s: %v", orderID, err)
		utils.RespondWithInternalError(w, err)
		return
	}

	if order.UserID != utils.GetUserIDFromRequest(r) && !utils.IsAdminRequest(r) {
		utils.RespondWithError(w, http.StatusForbidden, "You can't perform this action")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, order)
}

// GetUserOrders returns a user's orders (owner or admin).
// GET /api/orders/user/:userId
func GetUserOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("userId")

	if userID != utils.GetUserIDFromRequest(r) && !utils.IsAdminRequest(r) {
		utils.RespondWithError(w, http.StatusForbidden, "You can't perform this action")
		return
	}

	cur, err := db.OrdersCollection.Find(r.Context(), bson.M{"userId": userID},
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		log.Printf("GetUserOrders: query failed for %s: %v", userID, err)
		utils.RespondWithInternalError(w, err)
		return
	}
	defer cur.Close(r.Context())

	orders := []models.Order{}
	if err := cur.All(r.Context(), &orders); err != nil {
		log.Printf("GetUserOrders: decode failed for %s: %v", userID, err)
		utils.RespondWithInternalError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, orders)
}

// GetAllOrders returns every order (admin only; enforced in routing).
// GET /api/orders/orders
func GetAllOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cur, err := db.OrdersCollection.Find(r.Context(), bson.M{},
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		log.Printf("GetAllOrders: query failed: %v", err)
		utils.RespondWithInternalError(w, err)
		return
	}
	defer cur.Close(r.Context())

	orders := []models.Order{}
	if err := cur.All(r.Context(), &orders); err != nil {
		log.Printf("GetAllOrders: decode failed: %v", err)
		utils.RespondWithInternalError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, orders)
}

// UpdateOrder moves an order along the fulfillment track. Only the
// status is client-writable; payment fields belong to the
// reconciliation flow.
// PUT /api/orders/order/:orderId
func UpdateOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	orderID := ps.ByName("orderId")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "status is required")
		return
	}

	var order models.Order
	err := db.OrdersCollection.FindOne(r.Context(), bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithInternalError(w, err)
		return
	}

	if !validTransition(order.Status, req.Status) {
		utils.RespondWithError(w, http.StatusConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, req.Status))
		return
	}

	// Conditional on the status we just read, so two racing updates
	// can't both apply.
	res, err := db.OrdersCollection.UpdateOne(r.Context(),
		bson.M{"orderId": orderID, "status": order.Status},
		bson.M{"$set": bson.M{"status": req.Status, "updatedAt": time.Now()}},
	)
	if err != nil {
		log.Printf("UpdateOrder: update failed for %s: %v", orderID, err)
		utils.RespondWithInternalError(w, err)
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusConflict, "Order changed concurrently, retry")
		return
	}

	order.Status = req.Status
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// DeleteOrder removes an order (admin only; enforced in routing).
// DELETE /api/orders/order/:orderId
func DeleteOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	orderID := ps.ByName("orderId")

	res, err := db.OrdersCollection.DeleteOne(r.Context(), bson.M{"orderId": orderID})
	if err != nil {
		log.Printf("DeleteOrder: delete failed for %s: %v", orderID, err)
		utils.RespondWithInternalError(w, err)
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Order has been deleted"})
}

// Checkout marks an order completed. Completion is gated on the order
// having been paid; an unpaid order cannot be fulfilled.
// POST /api/orders/checkout
func Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	order, err := store.FindByID(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithInternalError(w, err)
		return
	}

	if order.UserID != utils.GetUserIDFromRequest(r) && !utils.IsAdminRequest(r) {
		utils.RespondWithError(w, http.StatusForbidden, "You can't perform this action")
		return
	}

	matched, err := store.CompleteIfPaid(r.Context(), req.OrderID)
	if err != nil {
		log.Printf("Checkout: update failed for %s: %v", req.OrderID, err)
		utils.RespondWithInternalError(w, err)
		return
	}
	if !matched {
		utils.RespondWithError(w, http.StatusConflict, "Order must be paid before checkout")
		return
	}

	order.Status = models.OrderCompleted
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Checkout successful", "order": order})
}
