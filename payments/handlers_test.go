package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"heliox/models"
	"heliox/paystack"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeGateway records calls and returns canned results.
type fakeGateway struct {
	initErr      error
	planErr      error
	verifyStatus string
	verifyErr    error

	planName   string
	planAmount float64
	initAmount float64
	initPlanID string
	initRef    string
	initCalls  int
	verifyRefs []string
}

func (g *fakeGateway) InitializeTransaction(_ context.Context, email string, amount float64, callbackURL, reference, planID string) (*paystack.TxnData, error) {
	g.initCalls++
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.initAmount = amount
	g.initPlanID = planID
	g.initRef = reference
	return &paystack.TxnData{
		AuthorizationURL: "https://checkout.example/" + reference,
		AccessCode:       "access_" + reference,
		Reference:        reference,
	}, nil
}

func (g *fakeGateway) CreatePlan(_ context.Context, name string, amount float64) (string, error) {
	if g.planErr != nil {
		return "", g.planErr
	}
	g.planName = name
	g.planAmount = amount
	return "PLN_test", nil
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, reference string) (*paystack.VerifyData, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	g.verifyRefs = append(g.verifyRefs, reference)
	return &paystack.VerifyData{Status: g.verifyStatus, Reference: reference}, nil
}

// fakeOrders is an in-memory OrderStore.
type fakeOrders struct {
	orders map[string]*models.Order
}

func newFakeOrders(orders ...*models.Order) *fakeOrders {
	m := make(map[string]*models.Order)
	for _, o := range orders {
		m[o.OrderID] = o
	}
	return &fakeOrders{orders: m}
}

func (s *fakeOrders) FindByID(_ context.Context, orderID string) (*models.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrders) StampReference(_ context.Context, orderID, reference string) error {
	o, ok := s.orders[orderID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	o.PaymentReference = reference
	return nil
}

func (s *fakeOrders) MarkPaidByReference(_ context.Context, reference string) (bool, error) {
	for _, o := range s.orders {
		if o.PaymentReference != "" && o.PaymentReference == reference {
			o.PaymentStatus = models.PaymentPaid
			return true, nil
		}
	}
	return false, nil
}

// fakeAttempts is an in-memory AttemptStore.
type fakeAttempts struct {
	attempts map[string]*models.PaymentAttempt
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{attempts: make(map[string]*models.PaymentAttempt)}
}

func (s *fakeAttempts) Insert(_ context.Context, attempt models.PaymentAttempt) error {
	s.attempts[attempt.Reference] = &attempt
	return nil
}

func (s *fakeAttempts) Resolve(_ context.Context, reference, status string) error {
	if a, ok := s.attempts[reference]; ok && a.Status == models.AttemptInitiated {
		a.Status = status
	}
	return nil
}

func testOrder() *models.Order {
	return &models.Order{
		OrderID: "order-1",
		UserID:  "user-1",
		Items:   []models.OrderItem{{ItemID: "item-1", Quantity: 1}},
		Amount: models.AmountBreakdown{
			ItemsAndInstallation: 9500,
			VAT:                  500,
			TotalAmount:          10000,
		},
		PaymentMethod: models.MethodCard,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
	}
}

func newTestService(gw *fakeGateway, orders *fakeOrders) (*Service, *fakeAttempts) {
	attempts := newFakeAttempts()
	return &Service{
		Gateway:     gw,
		Orders:      orders,
		Attempts:    attempts,
		CallbackURL: "http://localhost:3000/payment/callback",
	}, attempts
}

func doPay(t *testing.T, svc *Service, orderID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/order/"+orderID+"/pay", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	svc.Pay(rec, req, httprouter.Params{{Key: "orderId", Value: orderID}})
	return rec
}

func TestPayStampsReferenceOnGatewaySuccess(t *testing.T) {
	gw := &fakeGateway{}
	orders := newFakeOrders(testOrder())
	svc, attempts := newTestService(gw, orders)

	rec := doPay(t, svc, "order-1", map[string]any{"email": "a@b.com", "amount": 10000.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	stored := orders.orders["order-1"]
	if stored.PaymentReference == "" {
		t.Fatal("order was not stamped with a reference")
	}
	if stored.PaymentReference != gw.initRef {
		t.Errorf("order reference %q != gateway reference %q", stored.PaymentReference, gw.initRef)
	}
	if got, _ := OrderIDFromReference(stored.PaymentReference); got != "order-1" {
		t.Errorf("reference %q does not embed the order id", stored.PaymentReference)
	}
	if _, ok := attempts.attempts[stored.PaymentReference]; !ok {
		t.Error("no payment attempt was recorded")
	}
}

func TestPayGatewayFailureLeavesOrderUntouched(t *testing.T) {
	gw := &fakeGateway{initErr: errors.New("gateway down")}
	orders := newFakeOrders(testOrder())
	svc, attempts := newTestService(gw, orders)

	rec := doPay(t, svc, "order-1", map[string]any{"email": "a@b.com", "amount": 10000.0})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	if ref := orders.orders["order-1"].PaymentReference; ref != "" {
		t.Errorf("order was stamped with %q despite gateway failure", ref)
	}
	if len(attempts.attempts) != 0 {
		t.Error("attempt recorded despite gateway failure")
	}
}

func TestPayTwiceMintsDistinctReferences(t *testing.T) {
	gw := &fakeGateway{}
	orders := newFakeOrders(testOrder())
	svc, _ := newTestService(gw, orders)

	doPay(t, svc, "order-1", map[string]any{"email": "a@b.com", "amount": 10000.0})
	first := orders.orders["order-1"].PaymentReference
	doPay(t, svc, "order-1", map[string]any{"email": "a@b.com", "amount": 10000.0})
	second := orders.orders["order-1"].PaymentReference

	if first == "" || second == "" {
		t.Fatal("expected both initiations to stamp a reference")
	}
	if first == second {
		t.Errorf("two initiations produced the same reference %q", first)
	}
}

func TestPayUnknownOrder(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{}, newFakeOrders())

	rec := doPay(t, svc, "missing", map[string]any{"email": "a@b.com", "amount": 100.0})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPayValidation(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{}, newFakeOrders(testOrder()))

	rec := doPay(t, svc, "order-1", map[string]any{"email": "", "amount": 0.0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPayInstallmentRoundsUpPerPeriod(t *testing.T) {
	gw := &fakeGateway{}
	orders := newFakeOrders(testOrder()) // totalAmount 10000
	svc, _ := newTestService(gw, orders)

	raw, _ := json.Marshal(map[string]any{"email": "a@b.com", "installments": 3})
	req := httptest.NewRequest(http.MethodPost, "/api/orders/order/order-1/pay-installment", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	svc.PayInstallment(rec, req, httprouter.Params{{Key: "orderId", Value: "order-1"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if gw.planAmount != 3334 {
		t.Errorf("plan amount = %v, want ceil(10000/3) = 3334", gw.planAmount)
	}
	if gw.initAmount != 3334 {
		t.Errorf("transaction amount = %v, want 3334", gw.initAmount)
	}
	if gw.initPlanID != "PLN_test" {
		t.Errorf("transaction plan = %q, want PLN_test", gw.initPlanID)
	}
}

func TestPayInstallmentPlanFailureDoesNotStamp(t *testing.T) {
	gw := &fakeGateway{planErr: errors.New("plan rejected")}
	orders := newFakeOrders(testOrder())
	svc, _ := newTestService(gw, orders)

	raw, _ := json.Marshal(map[string]any{"email": "a@b.com", "installments": 3})
	req := httptest.NewRequest(http.MethodPost, "/api/orders/order/order-1/pay-installment", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	svc.PayInstallment(rec, req, httprouter.Params{{Key: "orderId", Value: "order-1"}})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if ref := orders.orders["order-1"].PaymentReference; ref != "" {
		t.Errorf("order stamped with %q despite plan failure", ref)
	}
}

func doVerify(svc *Service, reference string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/orders/payments/verify/"+reference, nil)
	rec := httptest.NewRecorder()
	svc.Verify(rec, req, httprouter.Params{{Key: "reference", Value: reference}})
	return rec
}

func TestVerifySuccessIsIdempotent(t *testing.T) {
	order := testOrder()
	order.PaymentReference = MintReference(order.OrderID)
	gw := &fakeGateway{verifyStatus: "success"}
	orders := newFakeOrders(order)
	svc, attempts := newTestService(gw, orders)
	attempts.attempts[order.PaymentReference] = &models.PaymentAttempt{
		Reference: order.PaymentReference,
		OrderID:   order.OrderID,
		Status:    models.AttemptInitiated,
	}

	rec := doVerify(svc, order.PaymentReference)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	stored := orders.orders[order.OrderID]
	if stored.PaymentStatus != models.PaymentPaid {
		t.Fatalf("paymentStatus = %q, want paid", stored.PaymentStatus)
	}
	if stored.Status != models.OrderPending {
		t.Errorf("status = %q, fulfillment state must not change on payment", stored.Status)
	}
	if attempts.attempts[order.PaymentReference].Status != models.AttemptSuccess {
		t.Errorf("attempt not resolved to success")
	}

	// Second delivery of the same result is a no-op, not an error.
	rec = doVerify(svc, order.PaymentReference)
	if rec.Code != http.StatusOK {
		t.Fatalf("second verify status = %d, want 200", rec.Code)
	}
	if stored.PaymentStatus != models.PaymentPaid || stored.Status != models.OrderPending {
		t.Errorf("second verify changed state: %q/%q", stored.Status, stored.PaymentStatus)
	}
}

func TestVerifyNonSuccessDoesNotMutate(t *testing.T) {
	order := testOrder()
	order.PaymentReference = MintReference(order.OrderID)
	gw := &fakeGateway{verifyStatus: "abandoned"}
	orders := newFakeOrders(order)
	svc, _ := newTestService(gw, orders)

	rec := doVerify(svc, order.PaymentReference)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body["status"] != "abandoned" {
		t.Errorf("status = %v, want raw gateway status abandoned", body["status"])
	}
	if orders.orders[order.OrderID].PaymentStatus != models.PaymentPending {
		t.Error("non-success verification mutated the order")
	}
}

func doCallback(svc *Service, reference string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(map[string]string{"reference": reference})
	req := httptest.NewRequest(http.MethodPost, "/api/orders/payments/callback", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	svc.Callback(rec, req, nil)
	return rec
}

func TestCallbackReVerifiesAndMarksPaid(t *testing.T) {
	order := testOrder()
	order.PaymentReference = MintReference(order.OrderID)
	gw := &fakeGateway{verifyStatus: "success"}
	orders := newFakeOrders(order)
	svc, _ := newTestService(gw, orders)

	rec := doCallback(svc, order.PaymentReference)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(gw.verifyRefs) != 1 {
		t.Fatal("callback did not re-verify against the gateway")
	}
	if orders.orders[order.OrderID].PaymentStatus != models.PaymentPaid {
		t.Error("callback did not mark the order paid")
	}
}

func TestCallbackUnknownReferenceIs404(t *testing.T) {
	order := testOrder() // no reference stamped
	gw := &fakeGateway{verifyStatus: "success"}
	orders := newFakeOrders(order)
	svc, attempts := newTestService(gw, orders)

	rec := doCallback(svc, "ref-ghost-1234567890")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if orders.orders[order.OrderID].PaymentStatus != models.PaymentPending {
		t.Error("unknown reference mutated an order")
	}
	if len(attempts.attempts) != 0 {
		t.Error("unknown reference created an attempt record")
	}
}

func TestCallbackRequiresReference(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{}, newFakeOrders())

	req := httptest.NewRequest(http.MethodPost, "/api/orders/payments/callback", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	svc.Callback(rec, req, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
