package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"heliox/metrics"
	"heliox/models"
	"heliox/paystack"
	"heliox/rdx"
	"heliox/utils"

	"github.com/julienschmidt/httprouter"
)

const gatewayTimeout = 15 * time.Second

// Gateway is the external payment collaborator. paystack.Client
// satisfies it; tests substitute a fake.
type Gateway interface {
	InitializeTransaction(ctx context.Context, email string, amount float64, callbackURL, reference, planID string) (*paystack.TxnData, error)
	CreatePlan(ctx context.Context, name string, amount float64) (string, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyData, error)
}

// Service orchestrates payment initiation and reconciliation.
type Service struct {
	Gateway     Gateway
	Orders      OrderStore
	Attempts    AttemptStore
	CallbackURL string
}

// NewService wires the Mongo-backed stores and the given gateway.
func NewService(gateway Gateway) *Service {
	callbackURL := os.Getenv("CALLBACK_URL")
	if callbackURL == "" {
		callbackURL = "http://localhost:3000/payment/callback"
	}
	return &Service{
		Gateway:     gateway,
		Orders:      mongoOrders{},
		Attempts:    mongoAttempts{},
		CallbackURL: callbackURL,
	}
}

type payRequest struct {
	Email  string  `json:"email"`
	Amount float64 `json:"amount"`
}

type installmentRequest struct {
	Email        string `json:"email"`
	Installments int    `json:"installments"`
}

// Pay initiates a one-time payment for the order.
// POST /api/orders/order/:orderId/pay
func (s *Service) Pay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	orderID := ps.ByName("orderId")

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Amount <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "email and a positive amount are required")
		return
	}

	order, err := s.Orders.FindByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("Pay: order lookup failed for %s: %v", orderID, err)
		utils.RespondWithInternalError(w, err)
		return
	}

	s.initiate(w, r, order, req.Email, req.Amount, "")
}

// PayInstallment creates a monthly plan for totalAmount/installments
// (rounded up) and then opens a transaction against it. Both gateway
// calls must succeed before the order is stamped.
// POST /api/orders/order/:orderId/pay-installment
func (s *Service) PayInstallment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	orderID := ps.ByName("orderId")

	var req installmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Installments < 1 {
		utils.RespondWithError(w, http.StatusBadRequest, "email and at least one installment are required")
		return
	}

	order, err := s.Orders.FindByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("PayInstallment: order lookup failed for %s: %v", orderID, err)
		utils.RespondWithInternalError(w, err)
		return
	}

	perPeriod := paystack.InstallmentAmount(order.Amount.TotalAmount, req.Installments)

	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
	defer cancel()

	planName := fmt.Sprintf("Installment Plan-%s", order.OrderID)
	planID, err := s.Gateway.CreatePlan(ctx, planName, perPeriod)
	if err != nil {
		metrics.PaymentsInitiatedTotal.WithLabelValues(models.MethodInstallment, "gateway_failure").Inc()
		log.Printf("PayInstallment: plan creation failed for %s: %v", orderID, err)
		utils.RespondWithError(w, http.StatusBadGateway, "Payment initiation failed")
		return
	}

	s.initiate(w, r, order, req.Email, perPeriod, planID)
}

// initiate runs the shared second phase: open the gateway transaction,
// and only if that succeeds, stamp the order and record the attempt.
func (s *Service) initiate(w http.ResponseWriter, r *http.Request, order *models.Order, email string, amount float64, planID string) {
	method := models.MethodCard
	if planID != "" {
		method = models.MethodInstallment
	}

	// Best-effort per-order lock; the conditional updates below are
	// what actually guarantee consistency.
	lockName := "payinit:" + order.OrderID
	if ok, err := rdx.AcquireLock(r.Context(), lockName, 30*time.Second); err != nil {
		log.Printf("initiate: lock unavailable for %s: %v", order.OrderID, err)
	} else if !ok {
		utils.RespondWithError(w, http.StatusConflict, "Payment initiation already in progress")
		return
	} else {
		defer rdx.ReleaseLock(r.Context(), lockName)
	}

	reference := MintReference(order.OrderID)

	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
	defer cancel()

	txn, err := s.Gateway.InitializeTransaction(ctx, email, amount, s.CallbackURL, reference, planID)
	if err != nil {
		// Order is left untouched: no reference stored.
		metrics.PaymentsInitiatedTotal.WithLabelValues(method, "gateway_failure").Inc()
		log.Printf("initiate: gateway initialize failed for %s: %v", order.OrderID, err)
		if planID != "" {
			log.Printf("initiate: plan %s is orphaned at the gateway", planID)
		}
		utils.RespondWithError(w, http.StatusBadGateway, "Payment initiation failed")
		return
	}

	if err := s.Orders.StampReference(r.Context(), order.OrderID, reference); err != nil {
		log.Printf("initiate: failed to stamp reference %s on %s: %v", reference, order.OrderID, err)
		utils.RespondWithInternalError(w, err)
		return
	}

	attempt := models.PaymentAttempt{
		Reference:   reference,
		OrderID:     order.OrderID,
		PlanID:      planID,
		Email:       email,
		Amount:      amount,
		Status:      models.AttemptInitiated,
		InitiatedAt: time.Now(),
	}
	if err := s.Attempts.Insert(r.Context(), attempt); err != nil {
		// The order already carries the reference; this is audit trail.
		log.Printf("initiate: failed to record attempt %s: %v", reference, err)
	}

	metrics.PaymentsInitiatedTotal.WithLabelValues(method, "initiated").Inc()

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"status": true,
		"data": utils.M{
			"authorization_url": txn.AuthorizationURL,
			"access_code":       txn.AccessCode,
			"reference":         txn.Reference,
		},
	})
}

// Verify pulls the gateway's status for a reference and, on success,
// applies the terminal paid transition. Repeat calls are no-ops.
// GET /api/orders/payments/verify/:reference
func (s *Service) Verify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reference := ps.ByName("reference")

	status, code, err := s.reconcile(r.Context(), reference, "verify")
	if err != nil {
		if code == http.StatusNotFound {
			utils.RespondWithError(w, code, "No order matches this reference")
			return
		}
		log.Printf("Verify: reconciliation failed for %s: %v", reference, err)
		utils.RespondWithError(w, code, "Payment verification failed")
		return
	}

	if status != models.AttemptSuccess {
		// Not terminal-success at the gateway; report it, mutate nothing.
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": status})
		return
	}

	order, err := s.Orders.FindByID(r.Context(), func() string {
		id, _ := OrderIDFromReference(reference)
		return id
	}())
	if err != nil {
		// The transition already applied; return without the order body.
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": status})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": status, "order": order})
}

// Callback receives the gateway's push notification. The claimed
// status is never trusted: the reference is re-verified against the
// gateway before any transition.
// POST /api/orders/payments/callback
func (s *Service) Callback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Reference == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "reference is required")
		return
	}

	status, code, err := s.reconcile(r.Context(), body.Reference, "callback")
	if err != nil {
		if code == http.StatusNotFound {
			// A callback for an unknown reference means a bug or an
			// attack; it must surface, never silently succeed.
			utils.RespondWithError(w, code, "No order matches this reference")
			return
		}
		log.Printf("Callback: reconciliation failed for %s: %v", body.Reference, err)
		utils.RespondWithError(w, code, "Callback processing failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": status, "message": "Callback received"})
}

// reconcile is the shared verify-then-transition path. The paid
// transition is one conditional update keyed on the reference, so
// concurrent duplicate deliveries all converge on the same state.
func (s *Service) reconcile(ctx context.Context, reference, source string) (status string, httpCode int, err error) {
	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	data, err := s.Gateway.VerifyTransaction(gctx, reference)
	if err != nil {
		metrics.PaymentsReconciledTotal.WithLabelValues(source, "gateway_failure").Inc()
		return "", http.StatusBadGateway, err
	}

	if data.Status != "success" {
		if data.Status == "failed" {
			if err := s.Attempts.Resolve(ctx, reference, models.AttemptFailed); err != nil {
				log.Printf("reconcile: failed to resolve attempt %s: %v", reference, err)
			}
		}
		metrics.PaymentsReconciledTotal.WithLabelValues(source, data.Status).Inc()
		return data.Status, http.StatusOK, nil
	}

	matched, err := s.Orders.MarkPaidByReference(ctx, reference)
	if err != nil {
		metrics.PaymentsReconciledTotal.WithLabelValues(source, "store_failure").Inc()
		return "", http.StatusInternalServerError, err
	}
	if !matched {
		metrics.PaymentsReconciledTotal.WithLabelValues(source, "unmatched").Inc()
		return "", http.StatusNotFound, fmt.Errorf("no order for reference %s", reference)
	}

	if err := s.Attempts.Resolve(ctx, reference, models.AttemptSuccess); err != nil {
		log.Printf("reconcile: failed to resolve attempt %s: %v", reference, err)
	}

	metrics.PaymentsReconciledTotal.WithLabelValues(source, "paid").Inc()
	return models.AttemptSuccess, http.StatusOK, nil
}
